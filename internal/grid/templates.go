package grid

import (
	"fmt"
	"html/template"

	"github.com/fpang/photo-curator/internal/media"
)

type gridVM struct {
	Markup
	ThumbSize int
}

var gridTmpl = template.Must(template.New("grid").Parse(`
{{- if .Empty -}}
<div class="grid-empty">{{.EmptyMessage}}</div>
{{- else -}}
<div class="image-grid" style="--thumb-size: {{.ThumbSize}}px">
{{- range .Cells}}
<div class="thumb{{if .Selected}} selected{{end}}{{if .Flash}} flash{{end}}" data-id="{{.ID}}" data-index="{{.Index}}" draggable="true" data-on="{{range $i, $e := .Events}}{{if $i}} {{end}}{{$e}}{{end}}">
<img src="{{.ThumbURL}}" alt="{{.Filename}}" loading="lazy">
{{- if .IsVideo}}<span class="media-pill video">▶{{if .Duration}} {{.Duration}}{{end}}</span>{{end}}
{{- if .Rating}}<div class="rating">{{.Rating}}</div>{{end}}
{{- if .Tags}}<div class="permatags">{{.Tags}}</div>{{end}}
{{- if .DateBadge}}<span class="date-badge">{{.DateBadge}}</span>{{end}}
<span class="drag-handle" aria-hidden="true">⠿</span>
</div>
{{- end}}
</div>
{{- end}}`))

// InteractiveRating renders clickable rating buttons: a reject button and
// one button per star. The current rating is marked active.
func InteractiveRating(it media.Item) template.HTML {
	id, _ := it.ID.Int64()
	current, rated := it.Rated()
	out := fmt.Sprintf(`<span class="rating-widget" data-id="%d">`, id)
	for r := media.RatingRejected; r <= media.MaxRating; r++ {
		label := "✕"
		if r > media.RatingRejected {
			label = "★"
		}
		class := "rate"
		if rated && (r == current || (r > media.RatingRejected && r <= current)) {
			class += " active"
		}
		out += fmt.Sprintf(`<button type="button" class="%s" data-rating="%d">%s</button>`, class, r, label)
	}
	out += `</span>`
	return template.HTML(out)
}

// StaticRatingBadge renders a read-only badge, or nothing for unrated items.
func StaticRatingBadge(it media.Item) template.HTML {
	if it.Rating == nil {
		return ""
	}
	return template.HTML(fmt.Sprintf(`<span class="rating-badge">%s</span>`, template.HTMLEscapeString(media.RatingLabel(it.Rating))))
}
