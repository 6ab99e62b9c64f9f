// Package view projects form state into what the page renders.
package view

import (
	"strconv"
	"strings"
	"time"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
	"github.com/amirhf/imageSearch/services/search-web/models"
)

// Image is one rendered gallery entry.
type Image struct {
	ID       catalog.ImageID `json:"id"`
	Path     string          `json:"path"`
	Label    string          `json:"label"`
	Selected bool            `json:"selected,omitempty"`
}

func imageOf(id catalog.ImageID) Image {
	return Image{ID: id, Path: id.AssetPath(), Label: "#" + id.String()}
}

// Result is the rendered form of a successful search.
type Result struct {
	CurveURL string  `json:"curve_url,omitempty"`
	Images   []Image `json:"images"`
}

func (r Result) HasCurve() bool {
	return r.CurveURL != ""
}

// Project renders res. The curve reference gets a cache-busting suffix and
// the images keep the backend's ranking order.
func Project(res *models.SearchResult, now time.Time) Result {
	if res == nil {
		return Result{}
	}
	out := Result{Images: make([]Image, 0, len(res.SimilarImages))}
	if res.RPCurve != "" {
		out.CurveURL = CacheBust(res.RPCurve, now)
	}
	for _, id := range res.SimilarImages {
		out.Images = append(out.Images, imageOf(id))
	}
	return out
}

// CacheBust appends t=<unix millis> to ref.
func CacheBust(ref string, now time.Time) string {
	sep := "?"
	if strings.Contains(ref, "?") {
		sep = "&"
	}
	return ref + sep + "t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
