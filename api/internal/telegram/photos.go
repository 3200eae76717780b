package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"assignment-duper/api/internal/util"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1] // самое крупное превью
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.SendError(cid, err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	imgBytes, err := download(url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	if getMode(cid) == modeAwaitSample {
		clearMode(cid)
		r.saveSample(cid, imgBytes)
		return
	}

	// Многостраничную задачу присылают альбомом, он приходит россыпью
	// апдейтов. Копим кадры и запускаем прогон только после паузы.
	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}
	bi, _ := batches.LoadOrStore(key, &photoBatch{chatID: cid})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, imgBytes)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(albumDebounce, func() { r.flushBatch(key) })
	b.mu.Unlock()

	if first && msg.MediaGroupID != "" {
		r.send(cid, "Фото получено, жду остальные кадры альбома...")
	}
}

func (r *Router) flushBatch(key string) {
	bi, ok := batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := b.images
	b.images = nil
	b.mu.Unlock()
	if len(images) == 0 {
		return
	}

	merged, err := stackVertically(images)
	if err != nil {
		r.SendError(b.chatID, fmt.Errorf("склейка альбома: %w", err))
		return
	}
	r.startRun(b.chatID, merged)
}

// stackVertically собирает кадры в одно фото задачи: вертикальная лента
// на белом фоне, узкие кадры по центру, итог ужимается под mergedMaxPixels.
func stackVertically(frames [][]byte) ([]byte, error) {
	imgs := make([]image.Image, 0, len(frames))
	width, height := 0, 0
	for _, f := range frames {
		img, _, err := image.Decode(bytes.NewReader(f))
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
		if w := img.Bounds().Dx(); w > width {
			width = w
		}
		height += img.Bounds().Dy()
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("пустые кадры")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	y := 0
	for _, img := range imgs {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (width - w) / 2
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	out := image.Image(canvas)
	if px := width * height; px > mergedMaxPixels {
		k := math.Sqrt(float64(mergedMaxPixels) / float64(px))
		out = shrink(canvas, int(float64(width)*k+0.5), int(float64(height)*k+0.5))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shrink(src image.Image, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(sb.Min.X+x*sb.Dx()/w, sy))
		}
	}
	return dst
}

func (r *Router) saveSample(cid int64, imgBytes []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Samples.Upsert(ctx, cid, imgBytes, util.SniffMimeHTTP(imgBytes)); err != nil {
		r.SendError(cid, err)
		return
	}
	r.send(cid, "Образец почерка сохранён. Теперь пришлите фото задачи.")
}

func download(url string) ([]byte, error) {
	cl := &http.Client{Timeout: 60 * time.Second}
	resp, err := cl.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
