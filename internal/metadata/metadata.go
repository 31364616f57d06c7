// Package metadata inspects full-resolution image bytes for the editor's
// metadata panel: pixel dimensions plus EXIF capture date, camera and GPS.
//
// EXIF comes from evanoberholster/imagemeta, which reads JPEG, HEIC and TIFF
// containers from an io.ReadSeeker without decoding pixels. Dimensions come
// from image.DecodeConfig with the JPEG, PNG, GIF and WebP decoders
// registered, which likewise reads only the header.
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// ErrUnrecognized is returned when neither EXIF nor a known image header
// could be read.
var ErrUnrecognized = errors.New("unrecognized image data")

// Metadata describes one image.
type Metadata struct {
	MIMEType string
	Format   string
	Width    int
	Height   int

	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// Field is one labelled row in the metadata panel.
type Field struct {
	Label string
	Value string
}

// Inspect reads what it can from data. Missing EXIF is not an error.
func Inspect(data []byte, mimeType string) (*Metadata, error) {
	m := &Metadata{MIMEType: mimeType}

	cfg, format, cfgErr := image.DecodeConfig(bytes.NewReader(data))
	if cfgErr == nil {
		m.Width, m.Height, m.Format = cfg.Width, cfg.Height, format
	}

	exifErr := m.readEXIF(data)

	if cfgErr != nil && exifErr != nil {
		log.Debug().Err(cfgErr).AnErr("exifErr", exifErr).Str("mimeType", mimeType).Msg("Metadata inspection found nothing")
		return nil, fmt.Errorf("inspect %s: %w", mimeType, ErrUnrecognized)
	}

	log.Debug().
		Str("format", m.Format).
		Int("width", m.Width).
		Int("height", m.Height).
		Bool("has_gps", m.HasGPS).
		Bool("has_date", m.HasDate).
		Msg("Image metadata inspected")
	return m, nil
}

func (m *Metadata) readEXIF(data []byte) (err error) {
	// imagemeta panics on some truncated containers.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode EXIF: %v", r)
		}
	}()

	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode EXIF: %w", err)
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		m.Latitude = gps.Latitude()
		m.Longitude = gps.Longitude()
		m.HasGPS = true
	}

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		m.DateTaken, m.HasDate = exifData.DateTimeOriginal(), true
	case !exifData.CreateDate().IsZero():
		m.DateTaken, m.HasDate = exifData.CreateDate(), true
	case !exifData.ModifyDate().IsZero():
		m.DateTaken, m.HasDate = exifData.ModifyDate(), true
	}

	m.CameraMake = strings.TrimSpace(exifData.Make)
	m.CameraModel = strings.TrimSpace(exifData.Model)
	return nil
}

// Fields returns the rows shown in the editor, skipping unknown values.
func (m *Metadata) Fields() []Field {
	var out []Field
	if m.Width > 0 && m.Height > 0 {
		out = append(out, Field{"Dimensions", fmt.Sprintf("%d × %d", m.Width, m.Height)})
	}
	if m.Format != "" {
		out = append(out, Field{"Format", strings.ToUpper(m.Format)})
	}
	if m.HasDate {
		out = append(out, Field{"Taken", m.DateTaken.Format("Monday, January 2, 2006 3:04 PM")})
	}
	if camera := strings.TrimSpace(m.CameraMake + " " + m.CameraModel); camera != "" {
		out = append(out, Field{"Camera", camera})
	}
	if m.HasGPS {
		out = append(out, Field{"Location", fmt.Sprintf("%.6f, %.6f", m.Latitude, m.Longitude)})
		out = append(out, Field{"Map", MapsURL(m.Latitude, m.Longitude)})
	}
	return out
}

// MapsURL links coordinates to Google Maps.
func MapsURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lon)
}
