package archive

import (
	"path/filepath"
	"strings"
)

// Format identifies an archive container kind.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGz
	FormatTarZst
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarZst:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// Extension returns the canonical file extension for the format (e.g., ".tar.gz").
func (f Format) Extension() string {
	switch f {
	case FormatZip:
		return ".zip"
	case FormatTar:
		return ".tar"
	case FormatTarGz:
		return ".tar.gz"
	case FormatTarZst:
		return ".tar.zst"
	default:
		return ""
	}
}

// IsTar reports whether the format is a tar stream, compressed or not.
func (f Format) IsTar() bool {
	return f == FormatTar || f == FormatTarGz || f == FormatTarZst
}

// DetectFormat classifies path by its name alone.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst
	}

	switch strings.TrimPrefix(filepath.Ext(lower), ".") {
	case "gz":
		return FormatTarGz
	case "zip":
		return FormatZip
	case "tar":
		return FormatTar
	default:
		return FormatUnknown
	}
}
