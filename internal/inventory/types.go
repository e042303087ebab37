package inventory

import (
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Image is one entry of the backend's image store.
type Image struct {
	ID              string
	Name            string
	Version         string
	ImportTimestamp int64
	Size            int64
}

// ImportedAt returns the import time. Zero when the backend did not report one.
func (i Image) ImportedAt() time.Time {
	if i.ImportTimestamp == 0 {
		return time.Time{}
	}
	return time.Unix(i.ImportTimestamp, 0)
}

// Filter narrows a listing. Conditions inside one filter are ANDed, filters
// in a request are ORed. An empty filter list lists everything.
type Filter struct {
	IDs       []string
	Prefixes  []string
	BaseNames []string
	Keywords  []string
}

// Matches reports whether img satisfies every non-empty condition of f.
func (f Filter) Matches(img Image) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, img.ID) {
		return false
	}
	if len(f.Prefixes) > 0 && !anyPrefix(f.Prefixes, img.Name) {
		return false
	}
	if len(f.BaseNames) > 0 && !containsString(f.BaseNames, baseName(img.Name)) {
		return false
	}
	if len(f.Keywords) > 0 && !anyContains(img.Name, f.Keywords) {
		return false
	}
	return true
}

// MatchAny applies filters the way the backend does.
func MatchAny(filters []Filter, img Image) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Matches(img) {
			return true
		}
	}
	return false
}

func newRequest(detail bool, filters []Filter) *dynamicpb.Message {
	req := dynamicpb.NewMessage(listImagesRequestDesc)
	req.Set(fieldOf(listImagesRequestDesc, "detail"), protoreflect.ValueOfBool(detail))

	list := req.Mutable(fieldOf(listImagesRequestDesc, "filters")).List()
	for _, f := range filters {
		msg := dynamicpb.NewMessage(imageFilterDesc)
		setStrings(msg, "ids", f.IDs)
		setStrings(msg, "prefixes", f.Prefixes)
		setStrings(msg, "base_names", f.BaseNames)
		setStrings(msg, "keywords", f.Keywords)
		list.Append(protoreflect.ValueOfMessage(msg))
	}
	return req
}

func decodeRequest(req *dynamicpb.Message) (detail bool, filters []Filter) {
	detail = req.Get(fieldOf(listImagesRequestDesc, "detail")).Bool()

	list := req.Get(fieldOf(listImagesRequestDesc, "filters")).List()
	for i := 0; i < list.Len(); i++ {
		msg := list.Get(i).Message()
		filters = append(filters, Filter{
			IDs:       getStrings(msg, "ids"),
			Prefixes:  getStrings(msg, "prefixes"),
			BaseNames: getStrings(msg, "base_names"),
			Keywords:  getStrings(msg, "keywords"),
		})
	}
	return detail, filters
}

func newResponse(images []Image) *dynamicpb.Message {
	resp := dynamicpb.NewMessage(listImagesResponseDesc)
	list := resp.Mutable(fieldOf(listImagesResponseDesc, "images")).List()
	for _, img := range images {
		msg := dynamicpb.NewMessage(imageInfoDesc)
		msg.Set(fieldOf(imageInfoDesc, "id"), protoreflect.ValueOfString(img.ID))
		msg.Set(fieldOf(imageInfoDesc, "name"), protoreflect.ValueOfString(img.Name))
		msg.Set(fieldOf(imageInfoDesc, "version"), protoreflect.ValueOfString(img.Version))
		msg.Set(fieldOf(imageInfoDesc, "import_timestamp"), protoreflect.ValueOfInt64(img.ImportTimestamp))
		msg.Set(fieldOf(imageInfoDesc, "size"), protoreflect.ValueOfInt64(img.Size))
		list.Append(protoreflect.ValueOfMessage(msg))
	}
	return resp
}

func decodeResponse(resp *dynamicpb.Message) []Image {
	list := resp.Get(fieldOf(listImagesResponseDesc, "images")).List()
	images := make([]Image, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		msg := list.Get(i).Message()
		images = append(images, Image{
			ID:              msg.Get(fieldOf(imageInfoDesc, "id")).String(),
			Name:            msg.Get(fieldOf(imageInfoDesc, "name")).String(),
			Version:         msg.Get(fieldOf(imageInfoDesc, "version")).String(),
			ImportTimestamp: msg.Get(fieldOf(imageInfoDesc, "import_timestamp")).Int(),
			Size:            msg.Get(fieldOf(imageInfoDesc, "size")).Int(),
		})
	}
	return images
}

func fieldOf(md protoreflect.MessageDescriptor, name protoreflect.Name) protoreflect.FieldDescriptor {
	return md.Fields().ByName(name)
}

func setStrings(msg protoreflect.Message, name protoreflect.Name, values []string) {
	if len(values) == 0 {
		return
	}
	list := msg.Mutable(fieldOf(msg.Descriptor(), name)).List()
	for _, v := range values {
		list.Append(protoreflect.ValueOfString(v))
	}
}

func getStrings(msg protoreflect.Message, name protoreflect.Name) []string {
	list := msg.Get(fieldOf(msg.Descriptor(), name)).List()
	if list.Len() == 0 {
		return nil
	}
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}
