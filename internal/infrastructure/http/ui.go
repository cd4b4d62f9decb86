package http

import (
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/usecases"
)

// uiText holds the page strings for one locale.
type uiText struct {
	Lang        string
	Title       string
	Intro       string
	Sidebar     string
	APIKey      string
	Theme       string
	ThemeHint   string
	Length      string
	Style       string
	Submit      string
	Ready       string
	Inspiration string
}

var uiTexts = map[entities.Locale]uiText{
	entities.LocaleEN: {
		Lang:        "en",
		Title:       "Poem Generator",
		Intro:       "Pick a theme, a length and a style. Sample poems on the theme inspire the result.",
		Sidebar:     "Customize your poem",
		APIKey:      "Your API key",
		Theme:       "Theme",
		ThemeHint:   "e.g. love, nature, melancholy",
		Length:      "Length",
		Style:       "Style",
		Submit:      "Generate a poem",
		Ready:       "Your poem is ready!",
		Inspiration: "Inspired by",
	},
	entities.LocaleFR: {
		Lang:        "fr",
		Title:       "Générateur de Poèmes",
		Intro:       "Choisissez un thème, une longueur et un style. Des poèmes sur le thème inspirent le résultat.",
		Sidebar:     "Personnalisez votre poème",
		APIKey:      "Entrez votre clé API",
		Theme:       "Thème",
		ThemeHint:   "ex : amour, nature, mélancolie",
		Length:      "Longueur",
		Style:       "Style",
		Submit:      "Générer un poème",
		Ready:       "Votre poème est prêt !",
		Inspiration: "Inspiré par",
	},
}

func textFor(loc entities.Locale) uiText {
	if t, ok := uiTexts[loc]; ok {
		return t
	}
	return uiTexts[entities.LocaleEN]
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// pageData is the model of templates/index.html. It never carries the
// credential, so the key field always renders empty.
type pageData struct {
	Text      uiText
	Theme     string
	Lengths   []option
	Styles    []option
	Poem      string
	Error     string
	Neighbors []entities.Neighbor
}

func newPageData(loc entities.Locale, theme string, length entities.Length, style entities.Style) pageData {
	if length == "" {
		length = entities.LengthShort
	}
	if style == "" {
		style = entities.StyleFreeVerse
	}
	d := pageData{Text: textFor(loc), Theme: theme}
	for _, l := range entities.Lengths {
		d.Lengths = append(d.Lengths, option{Value: string(l), Label: l.Label(loc), Selected: l == length})
	}
	for _, s := range entities.Styles {
		d.Styles = append(d.Styles, option{Value: string(s), Label: s.Label(loc), Selected: s == style})
	}
	return d
}

func (d *pageData) applyRun(run *usecases.Run) {
	if run.Poem != nil {
		d.Poem = run.Poem.Text
		d.Neighbors = run.Neighbors
		return
	}
	d.Error = run.Message()
}
