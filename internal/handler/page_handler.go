package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/hitoshi/profilescope/internal/risk"
)

//go:embed templates/*.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// defaultExampleUsername はフォームの初期値。
const defaultExampleUsername = "harini_kannan_18"

// pageData はindex.htmlに渡す値。
type pageData struct {
	ExampleUsername     string
	HighRiskThreshold   int
	MediumRiskThreshold int
}

// PageHandler は分析画面のHTTPハンドラー。
type PageHandler struct {
	tmpl *template.Template
	data pageData
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{
		tmpl: indexTemplate,
		data: pageData{
			ExampleUsername:     defaultExampleUsername,
			HighRiskThreshold:   risk.HighRiskThreshold,
			MediumRiskThreshold: risk.MediumRiskThreshold,
		},
	}
}

// Index は分析フォームとクライアントスクリプトを含むHTMLを返す。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
