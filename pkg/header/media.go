package header

// MediaType is either a CoAP numeric content format or a textual media
// type. Exactly one PDU header field should carry it on the wire; Pack
// canonicalizes the textual form to numeric when a mapping exists.
type MediaType struct {
	// Format is the CoAP content-format id; valid when >= 0.
	Format int32
	// Name is the textual media type; used when Format < 0.
	Name string
}

// FormatMedia builds a numeric media type.
func FormatMedia(format uint16) MediaType { return MediaType{Format: int32(format)} }

// NamedMedia builds a textual media type.
func NamedMedia(name string) MediaType { return MediaType{Format: -1, Name: name} }

// AnnouncementMediaName is the media type of announcement PDUs whose body
// is a CBOR-encoded Header describing an upcoming message's stack.
const AnnouncementMediaName = "application/vnd.hqfbp+cbor"

// AnnouncementFormat is the CoAP content format announcements canonicalize
// to (application/cbor).
const AnnouncementFormat uint16 = 60

// coapContentFormats maps media type names to CoAP numeric formats.
var coapContentFormats = map[string]uint16{
	"text/plain;charset=utf-8": 0,
	"image/gif":                21,
	"image/jpeg":               22,
	"image/png":                23,
	"image/tiff":               24,
	"image/svg+xml":            30,
	"application/link-format":  40,
	"application/xml":          41,
	"application/octet-stream": 42,
	"application/json":         50,
	"application/cbor":         60,
	"application/cose-key":     101,
	"application/cose-key-set": 102,
	"application/senml+json":   110,
	"application/senml-exi":    111,
	"application/senml+cbor":   112,
	"application/sensml+json":  113,
	"application/sensml-exi":   114,
	"application/sensml+cbor":  115,
	"application/or-tecap":     116,
	AnnouncementMediaName:      60,
}

var revCoapContentFormats = func() map[uint16]string {
	m := make(map[uint16]string, len(coapContentFormats))
	for name, id := range coapContentFormats {
		if name == AnnouncementMediaName {
			continue // application/cbor is the canonical name for 60
		}
		m[id] = name
	}
	return m
}()

// CoapID looks up the numeric CoAP format of a media type name.
func CoapID(name string) (uint16, bool) {
	id, ok := coapContentFormats[name]
	return id, ok
}

// CoapName looks up the canonical name of a numeric CoAP format.
func CoapName(id uint16) (string, bool) {
	name, ok := revCoapContentFormats[id]
	return name, ok
}

// Media returns the header's media type, preferring the numeric form.
func (h *Header) Media() *MediaType {
	if h.ContentFormat != nil {
		mt := FormatMedia(*h.ContentFormat)
		return &mt
	}
	if h.ContentType != nil {
		mt := NamedMedia(*h.ContentType)
		return &mt
	}
	return nil
}

// SetMedia assigns the media type, clearing both carriers first. Passing
// nil removes it.
func (h *Header) SetMedia(mt *MediaType) {
	h.ContentFormat = nil
	h.ContentType = nil
	if mt == nil {
		return
	}
	if mt.Format >= 0 {
		h.ContentFormat = Ptr(uint16(mt.Format))
		return
	}
	h.ContentType = Ptr(mt.Name)
}

// IsAnnouncement reports whether the header's media type marks an
// announcement PDU.
func (h *Header) IsAnnouncement() bool {
	if h.ContentFormat != nil && *h.ContentFormat == AnnouncementFormat {
		return true
	}
	return h.ContentType != nil && *h.ContentType == AnnouncementMediaName
}
