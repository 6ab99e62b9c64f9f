package catalog

import (
	"fmt"
	"strconv"
)

// Size is the number of images in the gallery.
const Size = 1000

// Extension is the file suffix of every gallery asset.
const Extension = ".jpg"

// AssetPrefix is the URL path under which gallery images are served.
const AssetPrefix = "/images/"

// ImageID identifies one gallery image. Zero means "no image".
type ImageID int

// None is the zero ImageID.
const None ImageID = 0

// Valid reports whether the id names an image of the catalog.
func (id ImageID) Valid() bool {
	return id >= 1 && id <= Size
}

// String returns the bare decimal identifier, e.g. "42".
func (id ImageID) String() string {
	return strconv.Itoa(int(id))
}

// Filename returns the identifier with its extension, e.g. "42.jpg".
func (id ImageID) Filename() string {
	return id.String() + Extension
}

// AssetPath returns the local asset location, e.g. "/images/42.jpg".
func (id ImageID) AssetPath() string {
	return AssetPrefix + id.Filename()
}

// ParseName parses a bare identifier as returned by the search backend.
func ParseName(s string) (ImageID, error) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return None, fmt.Errorf("invalid image identifier %q", s)
	}
	id := ImageID(n)
	if !id.Valid() {
		return None, fmt.Errorf("image identifier %q outside catalog", s)
	}
	return id, nil
}

// Catalog is the bounded, ordered set of gallery images. It is read-only
// and safe to share.
type Catalog struct {
	size int
}

// Default is the fixed 1000-image gallery.
var Default = Catalog{size: Size}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return c.size
}

// Contains reports whether id is a member of the catalog.
func (c Catalog) Contains(id ImageID) bool {
	return id >= 1 && int(id) <= c.size
}

// Entries returns every id in catalog order.
func (c Catalog) Entries() []ImageID {
	ids := make([]ImageID, c.size)
	for i := range ids {
		ids[i] = ImageID(i + 1)
	}
	return ids
}

// Pages returns how many pages of perPage entries the catalog spans.
func (c Catalog) Pages(perPage int) int {
	if perPage <= 0 {
		return 1
	}
	return (c.size + perPage - 1) / perPage
}

// Page returns the 1-based page of entries. Out of range pages are clamped.
func (c Catalog) Page(page, perPage int) []ImageID {
	if perPage <= 0 {
		return c.Entries()
	}
	pages := c.Pages(perPage)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > c.size {
		end = c.size
	}
	ids := make([]ImageID, 0, end-start)
	for n := start + 1; n <= end; n++ {
		ids = append(ids, ImageID(n))
	}
	return ids
}

// PageOf returns the 1-based page that holds id.
func (c Catalog) PageOf(id ImageID, perPage int) int {
	if !c.Contains(id) || perPage <= 0 {
		return 1
	}
	return (int(id)-1)/perPage + 1
}
