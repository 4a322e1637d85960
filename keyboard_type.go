package ps2

import "fmt"

// KeyboardKind enumerates the keyboard models recognized from the identify
// command.
//
// For details, see
// https://web.archive.org/web/20200616182207/https://www.win.tue.nl/~aeb/linux/kbd/scancodes-10.html#ss10.3
type KeyboardKind int

const (
	// KeyboardUnknown is any identification byte pair outside the table.
	// The raw bytes are preserved in KeyboardType.ID.
	KeyboardUnknown KeyboardKind = iota
	// KeyboardXT rejected the identify command, which XT-class keyboards
	// never acknowledge.
	KeyboardXT
	// KeyboardATWithTranslation acknowledged identify but sent no
	// identification bytes.
	KeyboardATWithTranslation
	KeyboardMF2
	KeyboardMF2WithTranslation
	KeyboardThinkPad
	KeyboardThinkPadWithTranslation
	Keyboard122Key
	KeyboardIBM1390876
	KeyboardNCDN97
	KeyboardNCDSunLayout
	KeyboardOldJapaneseG
	KeyboardOldJapaneseP
	KeyboardOldJapaneseA
)

func (k KeyboardKind) String() string {
	switch k {
	case KeyboardXT:
		return "XT"
	case KeyboardATWithTranslation:
		return "AT with translation"
	case KeyboardMF2:
		return "MF2"
	case KeyboardMF2WithTranslation:
		return "MF2 with translation"
	case KeyboardThinkPad:
		return "ThinkPad"
	case KeyboardThinkPadWithTranslation:
		return "ThinkPad with translation"
	case Keyboard122Key:
		return "122-key"
	case KeyboardIBM1390876:
		return "IBM 1390876"
	case KeyboardNCDN97:
		return "NCD N-97"
	case KeyboardNCDSunLayout:
		return "NCD Sun layout"
	case KeyboardOldJapaneseG:
		return "old Japanese G"
	case KeyboardOldJapaneseP:
		return "old Japanese P"
	case KeyboardOldJapaneseA:
		return "old Japanese A"
	default:
		return "unknown"
	}
}

// KeyboardType is the decoded result of the identify command. ID holds the
// raw identification bytes for two-byte responses; for KeyboardXT and
// KeyboardATWithTranslation no bytes were received and ID is zero.
type KeyboardType struct {
	Kind KeyboardKind
	ID   [2]byte
}

func (t KeyboardType) String() string {
	if t.Kind == KeyboardUnknown {
		return fmt.Sprintf("unknown keyboard (id 0x%02x 0x%02x)", t.ID[0], t.ID[1])
	}
	return t.Kind.String()
}

// keyboardTypeFromID classifies a two-byte identify response. Unmatched
// pairs are never collapsed; they come back as KeyboardUnknown with the
// raw bytes attached.
func keyboardTypeFromID(first, second byte) KeyboardType {
	t := KeyboardType{Kind: KeyboardUnknown, ID: [2]byte{first, second}}
	switch {
	case first == 0xab && second == 0x83:
		t.Kind = KeyboardMF2
	case first == 0xab && (second == 0x41 || second == 0xc1):
		t.Kind = KeyboardMF2WithTranslation
	case first == 0xab && second == 0x84:
		t.Kind = KeyboardThinkPad
	case first == 0xab && second == 0x54:
		t.Kind = KeyboardThinkPadWithTranslation
	case first == 0xab && second == 0x86:
		t.Kind = Keyboard122Key
	case first == 0xbf && second == 0xbf:
		t.Kind = KeyboardIBM1390876
	case first == 0xab && second == 0x85:
		t.Kind = KeyboardNCDN97
	case first == 0xac && second == 0xa1:
		t.Kind = KeyboardNCDSunLayout
	case first == 0xab && second == 0x90:
		t.Kind = KeyboardOldJapaneseG
	case first == 0xab && second == 0x91:
		t.Kind = KeyboardOldJapaneseP
	case first == 0xab && second == 0x92:
		t.Kind = KeyboardOldJapaneseA
	}
	return t
}
