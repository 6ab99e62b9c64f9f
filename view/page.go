package view

import (
	"time"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/form"
	"github.com/amirhf/imageSearch/services/search-web/schema"
)

// Option is one entry of a select control.
type Option struct {
	Value    string
	Selected bool
}

// Select is one enumerated form control.
type Select struct {
	Name    string
	Label   string
	Options []Option
	Error   string
}

// Grid is the visible window of the picker dialog.
type Grid struct {
	Images     []Image
	Page       int
	Pages      int
	PrevPage   int
	NextPage   int
	CanConfirm bool
}

// Page is everything the search page template needs.
type Page struct {
	Version    uint64
	Image      *Image
	ImageError string
	Selects    []Select
	PickerOpen bool
	Grid       Grid
	Pending    bool
	CanSubmit  bool
	Failure    string
	Result     *Result
}

// Build projects a form snapshot. gridPage selects the picker window; zero
// means the page holding the tentative image.
func Build(snap form.Snapshot, c catalog.Catalog, gridPage, perPage int, now time.Time) Page {
	p := Page{
		Version:    snap.Version,
		ImageError: snap.Errors[schema.FieldImage],
		PickerOpen: snap.Picker.Open,
		Pending:    snap.State.Pending(),
		CanSubmit:  snap.CanSubmit(),
	}

	if id, ok := schema.ValidateImage(snap.Fields.Image); ok {
		img := imageOf(id)
		p.Image = &img
	}

	p.Selects = []Select{
		selectOf(schema.FieldModel, "Model", snap.Fields.Model, schema.Models, snap.Errors),
		selectOf(schema.FieldDistance, "Distance", snap.Fields.Distance, schema.Distances, snap.Errors),
		selectOf(schema.FieldTopN, "Top N", snap.Fields.TopN, schema.TopNs, snap.Errors),
	}

	if snap.Picker.Open {
		p.Grid = grid(c, snap.Picker.Tentative, gridPage, perPage)
		p.Grid.CanConfirm = snap.Picker.CanConfirm()
	}

	switch snap.State.Status {
	case form.StatusSucceeded:
		r := Project(snap.State.Result, now)
		p.Result = &r
	case form.StatusFailed:
		p.Failure = errs.Message(snap.State.Err)
	}
	return p
}

func selectOf[T ~string](field schema.Field, label string, current T, options []T, fieldErrs schema.ValidationErrors) Select {
	s := Select{Name: string(field), Label: label, Error: fieldErrs[field]}
	for _, o := range options {
		s.Options = append(s.Options, Option{Value: string(o), Selected: o == current})
	}
	return s
}

func grid(c catalog.Catalog, tentative catalog.ImageID, page, perPage int) Grid {
	pages := c.Pages(perPage)
	if page <= 0 {
		page = c.PageOf(tentative, perPage)
	}
	if page > pages {
		page = pages
	}
	g := Grid{Page: page, Pages: pages}
	if page > 1 {
		g.PrevPage = page - 1
	}
	if page < pages {
		g.NextPage = page + 1
	}
	for _, id := range c.Page(page, perPage) {
		img := imageOf(id)
		img.Selected = id == tentative
		g.Images = append(g.Images, img)
	}
	return g
}
