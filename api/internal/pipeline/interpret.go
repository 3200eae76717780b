package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"assignment-duper/api/internal/gateway"
	"assignment-duper/api/internal/util"
)

// interpretStepList разбирает ответ решателя: JSON-массив строк,
// часто завёрнутый в ```-ограду. Если распарсить не удалось —
// отдаём весь текст одной страницей: лучше кривой результат, чем обрыв.
func interpretStepList(raw string) []string {
	cleaned := util.StripCodeFences(raw)
	if cleaned == "" {
		return nil
	}

	var steps []string
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		return []string{cleaned}
	}

	out := steps[:0]
	for _, s := range steps {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// interpretInlineImage ищет в ответе первую inline-картинку
// и возвращает её как data:URI.
func interpretInlineImage(resp gateway.Response) (string, error) {
	for _, p := range resp.Parts {
		if len(p.InlineData) == 0 {
			continue
		}
		mime := util.PickMIME(p.MIMEType, "", p.InlineData)
		return util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(p.InlineData)), nil
	}
	return "", ErrNoImageProduced
}

// interpretVerdict разбирает {valid, reason}. Ошибка парсинга — наверх:
// политику «пропустить при сбое» применяет сам этап Validate.
func interpretVerdict(raw string) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(util.StripCodeFences(raw)), &v); err != nil {
		return Verdict{}, err
	}
	return v, nil
}

var handwritingCleaner = strings.NewReplacer(
	"**", "",
	"*", "",
	"__", "",
	"_", "",
	"#", "",
	"`", "",
	"[", "",
	"]", "",
)

// sanitizeForHandwriting убирает markdown-разметку из текста шага,
// иначе рендер выведет «**» и «#» как рукописные символы.
func sanitizeForHandwriting(s string) string {
	return strings.TrimSpace(handwritingCleaner.Replace(s))
}
