package imagemin

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var idRef = regexp.MustCompile(`#([A-Za-z_][\w.:-]*)`)

// cleanSVG applies the tree edits: removing a viewBox that only restates
// width and height, and optionally dropping ids nothing references.
func cleanSVG(data []byte, removeViewBox, cleanupIDs bool) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return data, nil
	}

	if removeViewBox {
		dropRedundantViewBox(root)
	}
	if cleanupIDs {
		dropUnusedIDs(doc, string(data))
	}

	doc.WriteSettings.CanonicalEndTags = false
	return doc.WriteToBytes()
}

func dropRedundantViewBox(root *etree.Element) {
	vb := root.SelectAttrValue("viewBox", "")
	if vb == "" {
		return
	}
	fields := strings.Fields(strings.ReplaceAll(vb, ",", " "))
	if len(fields) != 4 || fields[0] != "0" || fields[1] != "0" {
		return
	}
	w, okW := svgLength(root.SelectAttrValue("width", ""))
	h, okH := svgLength(root.SelectAttrValue("height", ""))
	vw, errW := strconv.ParseFloat(fields[2], 64)
	vh, errH := strconv.ParseFloat(fields[3], 64)
	if !okW || !okH || errW != nil || errH != nil {
		return
	}
	if w == vw && h == vh {
		root.RemoveAttr("viewBox")
	}
}

func svgLength(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func dropUnusedIDs(doc *etree.Document, raw string) {
	referenced := map[string]bool{}
	for _, m := range idRef.FindAllStringSubmatch(raw, -1) {
		referenced[m[1]] = true
	}
	for _, el := range doc.FindElements("//*[@id]") {
		if !referenced[el.SelectAttrValue("id", "")] {
			el.RemoveAttr("id")
		}
	}
}
