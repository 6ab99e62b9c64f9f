package schema

import "github.com/amirhf/imageSearch/services/search-web/catalog"

// Multipart field names expected by the search backend.
const (
	WireFilename   = "filename"
	WireDescriptor = "descriptor"
	WireSimilarity = "similarity"
	WireTopN       = "topn"
)

// SearchRequest is a validated search. It can only be built by Validate and
// cannot be changed afterwards.
type SearchRequest struct {
	image    catalog.ImageID
	model    DescriptorModel
	distance DistanceMetric
	topN     TopN
}

func (r SearchRequest) Image() catalog.ImageID { return r.image }
func (r SearchRequest) Model() DescriptorModel { return r.model }
func (r SearchRequest) Distance() DistanceMetric { return r.distance }
func (r SearchRequest) TopN() TopN { return r.topN }
func (r SearchRequest) IsZero() bool { return r.image == catalog.None }

// PayloadField is one name/value pair of the outbound form.
type PayloadField struct {
	Name  string
	Value string
}

// Payload maps the request onto the backend form fields, in a fixed order.
func (r SearchRequest) Payload() []PayloadField {
	return []PayloadField{
		{Name: WireFilename, Value: r.image.Filename()},
		{Name: WireDescriptor, Value: string(r.model)},
		{Name: WireSimilarity, Value: string(r.distance)},
		{Name: WireTopN, Value: string(r.topN)},
	}
}

// PayloadMap is Payload keyed by field name.
func (r SearchRequest) PayloadMap() map[string]string {
	m := make(map[string]string, 4)
	for _, f := range r.Payload() {
		m[f.Name] = f.Value
	}
	return m
}
