// Package schema is the contract for what constitutes a submittable search:
// the field set, the closed option lists and the image identifier predicate.
// Everything here is pure and safe to share between goroutines.
package schema

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
)

// DescriptorModel names a feature extractor understood by the backend.
type DescriptorModel string

const (
	MobileNet DescriptorModel = "MobileNet"
	Resnet50  DescriptorModel = "Resnet50"
	VGG16     DescriptorModel = "VGG16"
)

// DistanceMetric names a comparison function understood by the backend.
type DistanceMetric string

const (
	Euclidean    DistanceMetric = "euclidienne"
	ChiSquare    DistanceMetric = "chi square"
	Bhattacharya DistanceMetric = "bhattacharyya"
)

// TopN is the requested result-list size. The backend receives the literal.
type TopN string

const (
	Top20 TopN = "20"
	Top50 TopN = "50"
)

// Int returns the numeric value of a valid TopN, or 0.
func (n TopN) Int() int {
	v, err := strconv.Atoi(string(n))
	if err != nil {
		return 0
	}
	return v
}

var (
	Models    = []DescriptorModel{MobileNet, Resnet50, VGG16}
	Distances = []DistanceMetric{Euclidean, ChiSquare, Bhattacharya}
	TopNs     = []TopN{Top20, Top50}
)

// Field names one input of the search form.
type Field string

const (
	FieldImage    Field = "image"
	FieldModel    Field = "model"
	FieldDistance Field = "distance"
	FieldTopN     Field = "topn"
)

// Fields is the editable state of the search form.
type Fields struct {
	Image    string          `json:"image"`
	Model    DescriptorModel `json:"model"`
	Distance DistanceMetric  `json:"distance"`
	TopN     TopN            `json:"topn"`
}

// DefaultFields returns the values a fresh form starts from. Only the image
// is missing.
func DefaultFields() Fields {
	return Fields{
		Model:    VGG16,
		Distance: Euclidean,
		TopN:     Top20,
	}
}

const (
	MsgImage    = "Only images from this selection are accepted."
	MsgModel    = "Choose one of the available descriptor models."
	MsgDistance = "Choose one of the available distance metrics."
	MsgTopN     = "Choose one of the available result counts."
)

var imagePattern = regexp.MustCompile(`^(?:[1-9][0-9]{0,2}|1000)\.jpg$`)

// ValidationErrors maps each failing field to its user-facing message.
type ValidationErrors map[Field]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[Field(f)])
	}
	return "invalid search: " + strings.Join(parts, "; ")
}

// ValidateImage checks an image field value such as "42.jpg".
func ValidateImage(name string) (catalog.ImageID, bool) {
	if !imagePattern.MatchString(name) {
		return catalog.None, false
	}
	id, err := catalog.ParseName(strings.TrimSuffix(name, catalog.Extension))
	if err != nil {
		return catalog.None, false
	}
	return id, true
}

// Validate checks every field and builds the request. On failure the error
// is a ValidationErrors holding only the failing fields.
func Validate(f Fields) (SearchRequest, error) {
	errs := ValidationErrors{}

	id, ok := ValidateImage(f.Image)
	if !ok {
		errs[FieldImage] = MsgImage
	}
	if !contains(Models, f.Model) {
		errs[FieldModel] = MsgModel
	}
	if !contains(Distances, f.Distance) {
		errs[FieldDistance] = MsgDistance
	}
	if !contains(TopNs, f.TopN) {
		errs[FieldTopN] = MsgTopN
	}
	if len(errs) > 0 {
		return SearchRequest{}, errs
	}

	return SearchRequest{
		image:    id,
		model:    f.Model,
		distance: f.Distance,
		topN:     f.TopN,
	}, nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
