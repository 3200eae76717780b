package pipeline

// Image — непрозрачный бинарный вход: фото задачи либо образец почерка.
// Конвейер его только читает.
type Image struct {
	Data     []byte
	MIMEType string
}

// GeneratedPage — одна отрисованная страница решения.
// ImageData — data:URI; номера страниц плотные, с единицы, в порядке шагов.
type GeneratedPage struct {
	ImageData  string
	PageNumber int
}

// Verdict — итог проверки качества.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}
