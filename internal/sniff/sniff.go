// Package sniff derives a content signature from the leading bytes of an
// uploaded file. The classifier only ever sees the resulting tag, never the
// raw bytes.
package sniff

import "bytes"

// Signature is the closed set of content types the probe can report.
type Signature int

const (
	SigUnknown Signature = iota
	SigPEExecutable
	SigELFExecutable
	SigJPEG
	SigPNG
	SigGIF
	SigPDF
	SigZIP
	SigScriptText
)

// Class groups signatures for spoofing policy purposes. Mismatches inside
// the same class (e.g. a JPEG named .png) are not treated as spoofing.
type Class int

const (
	ClassUnknown Class = iota
	ClassExecutable
	ClassImage
	ClassDocument
	ClassArchive
	ClassScript
)

// ProbeLen is how many leading bytes callers should hand to Detect.
const ProbeLen = 512

func (s Signature) String() string {
	switch s {
	case SigPEExecutable:
		return "PE-executable"
	case SigELFExecutable:
		return "ELF-executable"
	case SigJPEG:
		return "JPEG"
	case SigPNG:
		return "PNG"
	case SigGIF:
		return "GIF"
	case SigPDF:
		return "PDF"
	case SigZIP:
		return "ZIP"
	case SigScriptText:
		return "script-text"
	default:
		return "unknown"
	}
}

// Class returns the policy class for a signature.
func (s Signature) Class() Class {
	switch s {
	case SigPEExecutable, SigELFExecutable:
		return ClassExecutable
	case SigJPEG, SigPNG, SigGIF:
		return ClassImage
	case SigPDF:
		return ClassDocument
	case SigZIP:
		return ClassArchive
	case SigScriptText:
		return ClassScript
	default:
		return ClassUnknown
	}
}

func (c Class) String() string {
	switch c {
	case ClassExecutable:
		return "executable"
	case ClassImage:
		return "image"
	case ClassDocument:
		return "document"
	case ClassArchive:
		return "archive"
	case ClassScript:
		return "script"
	default:
		return "unknown"
	}
}

// ParseClass maps a policy-file class name to its Class. The bool reports
// whether the name is known.
func ParseClass(name string) (Class, bool) {
	switch name {
	case "executable":
		return ClassExecutable, true
	case "image":
		return ClassImage, true
	case "document":
		return ClassDocument, true
	case "archive":
		return ClassArchive, true
	case "script":
		return ClassScript, true
	default:
		return ClassUnknown, false
	}
}

var (
	magicELF  = []byte{0x7f, 'E', 'L', 'F'}
	magicJPEG = []byte{0xff, 0xd8, 0xff}
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	magicGIF  = []byte("GIF8")
	magicPDF  = []byte("%PDF-")
	magicZIP  = []byte{'P', 'K', 0x03, 0x04}
)

// Detect inspects the leading bytes of a file and returns its signature.
// An empty or unrecognized head yields SigUnknown, never an error: the
// classifier treats unknown content as unclassifiable, not invalid.
func Detect(head []byte) Signature {
	switch {
	case len(head) >= 2 && head[0] == 'M' && head[1] == 'Z':
		return SigPEExecutable
	case bytes.HasPrefix(head, magicELF):
		return SigELFExecutable
	case bytes.HasPrefix(head, magicJPEG):
		return SigJPEG
	case bytes.HasPrefix(head, magicPNG):
		return SigPNG
	case bytes.HasPrefix(head, magicGIF):
		return SigGIF
	case bytes.HasPrefix(head, magicPDF):
		return SigPDF
	case bytes.HasPrefix(head, magicZIP):
		return SigZIP
	case bytes.HasPrefix(head, []byte("#!")):
		return SigScriptText
	case looksLikeScript(head):
		return SigScriptText
	default:
		return SigUnknown
	}
}

// looksLikeScript reports whether the head is plain printable text. Binary
// content almost always carries a control byte in the first half KiB.
func looksLikeScript(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	for _, b := range head {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
