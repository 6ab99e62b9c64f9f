// Package picker implements the gallery dialog used to choose the query image.
// A tentative choice lives only inside the open dialog; nothing reaches the
// form until Confirm.
package picker

import (
	"errors"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
)

var (
	ErrNotOpen      = errors.New("picker is not open")
	ErrNoSelection  = errors.New("no image selected")
	ErrUnknownImage = errors.New("image is not part of the gallery")
)

// State is a snapshot of the picker. Tentative is catalog.None when the
// dialog is closed or nothing has been chosen yet.
type State struct {
	Open      bool            `json:"open"`
	Tentative catalog.ImageID `json:"tentative,omitempty"`
}

// CanConfirm reports whether the confirm action is enabled.
func (s State) CanConfirm() bool {
	return s.Open && s.Tentative != catalog.None
}

// Picker is not safe for concurrent use; its owner serialises access.
type Picker struct {
	catalog catalog.Catalog
	state   State
}

func New(c catalog.Catalog) *Picker {
	return &Picker{catalog: c}
}

func (p *Picker) State() State {
	return p.state
}

// Open shows the dialog, carrying over the currently committed image.
func (p *Picker) Open(current catalog.ImageID) {
	if !p.catalog.Contains(current) {
		current = catalog.None
	}
	p.state = State{Open: true, Tentative: current}
}

// Select moves the tentative choice. The dialog stays open.
func (p *Picker) Select(id catalog.ImageID) error {
	if !p.state.Open {
		return ErrNotOpen
	}
	if !p.catalog.Contains(id) {
		return ErrUnknownImage
	}
	p.state.Tentative = id
	return nil
}

// Confirm closes the dialog and returns the chosen image. With no tentative
// choice it fails and the dialog stays open.
func (p *Picker) Confirm() (catalog.ImageID, error) {
	if !p.state.Open {
		return catalog.None, ErrNotOpen
	}
	if p.state.Tentative == catalog.None {
		return catalog.None, ErrNoSelection
	}
	id := p.state.Tentative
	p.state = State{}
	return id, nil
}

// Cancel closes the dialog and drops the tentative choice.
func (p *Picker) Cancel() {
	p.state = State{}
}
