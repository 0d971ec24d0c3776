package extractor

import "strings"

// Bin is a municipal waste bin colour.
type Bin string

const (
	BinYellow Bin = "yellow" // recyclables
	BinGreen  Bin = "green"  // organic
	BinBlue   Bin = "blue"   // general waste
)

// BinGuide tells the user where a trash type belongs.
type BinGuide struct {
	TrashType string `json:"trash_type"`
	Bin       Bin    `json:"bin"`
	Advice    string `json:"advice"`
}

var binsByType = map[string]Bin{
	"พลาสติก":  BinYellow,
	"กระดาษ":   BinYellow,
	"แก้ว":     BinYellow,
	"โลหะ":     BinYellow,
	"อินทรีย์": BinGreen,
	"plastic":  BinYellow,
	"paper":    BinYellow,
	"glass":    BinYellow,
	"metal":    BinYellow,
	"organic":  BinGreen,
}

var adviceByBin = map[Bin]string{
	BinYellow: "ทิ้งลงถังสีเหลือง สำหรับขยะรีไซเคิล",
	BinGreen:  "ทิ้งลงถังสีเขียว สำหรับขยะอินทรีย์",
	BinBlue:   "ทิ้งลงถังสีน้ำเงิน สำหรับขยะทั่วไป",
}

// BinFor returns the bin for a single trash type. Unknown types go to the
// general waste bin.
func BinFor(trashType string) Bin {
	if bin, ok := binsByType[strings.ToLower(strings.TrimSpace(trashType))]; ok {
		return bin
	}
	return BinBlue
}

// Guidance splits a comma-joined trash type list and returns one guide per
// type, in order.
func Guidance(trashTypes string) []BinGuide {
	var guides []BinGuide
	for _, t := range strings.Split(trashTypes, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		bin := BinFor(t)
		guides = append(guides, BinGuide{TrashType: t, Bin: bin, Advice: adviceByBin[bin]})
	}
	return guides
}
