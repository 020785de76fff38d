package models

// FormatKey identifies one of the fixed encodings the backend can produce.
type FormatKey string

const (
	FormatAAC          FormatKey = "aac"
	FormatLossless     FormatKey = "lossless"
	FormatHiRes        FormatKey = "hires_lossless"
	FormatDolbyAtmos   FormatKey = "dolby_atmos"
	FormatDolbyAudio   FormatKey = "dolby_audio"
	FormatNotAvailable           = "Not Available" // sentinel descriptor for missing encodings
)

// FormatKeys lists every known key in wire order.
var FormatKeys = []FormatKey{FormatAAC, FormatLossless, FormatHiRes, FormatDolbyAtmos, FormatDolbyAudio}

// Valid reports whether k is one of the fixed format keys.
func (k FormatKey) Valid() bool {
	for _, known := range FormatKeys {
		if k == known {
			return true
		}
	}
	return false
}

// FormatCatalog maps each format key to a human-readable descriptor, or the
// "Not Available" sentinel. Immutable once fetched for a catalog entry.
type FormatCatalog struct {
	AAC        string `json:"aac"`
	Lossless   string `json:"lossless"`
	HiRes      string `json:"hires_lossless"`
	DolbyAtmos string `json:"dolby_atmos"`
	DolbyAudio string `json:"dolby_audio"`
}

// Descriptor returns the descriptor string for the given key.
func (c FormatCatalog) Descriptor(k FormatKey) string {
	switch k {
	case FormatAAC:
		return c.AAC
	case FormatLossless:
		return c.Lossless
	case FormatHiRes:
		return c.HiRes
	case FormatDolbyAtmos:
		return c.DolbyAtmos
	case FormatDolbyAudio:
		return c.DolbyAudio
	default:
		return ""
	}
}

// Available reports whether the encoding behind k exists for this entry.
func (c FormatCatalog) Available(k FormatKey) bool {
	d := c.Descriptor(k)
	return d != "" && d != FormatNotAvailable
}
