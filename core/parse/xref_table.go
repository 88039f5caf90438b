package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTraditionalXRefTable parses a traditional PDF cross-reference table
// at startXRef into a map from object number to byte offset. Only in-use
// ("n") entries are recorded; free entries are skipped since callers only
// use this to locate an object's bytes.
func ParseTraditionalXRefTable(pdfBytes []byte, startXRef int64) (map[int]int64, error) {
	objMap := make(map[int]int64)

	xrefSection := pdfBytes[startXRef:]
	xrefStr := string(xrefSection[:min(10000, len(xrefSection))])

	xrefPos := strings.Index(xrefStr, "xref")
	if xrefPos == -1 {
		return nil, fmt.Errorf("xref keyword not found")
	}

	lines := strings.Split(xrefStr[xrefPos:], "\n")

	currentObjNum := 0
	inSubsection := false

	for i, line := range lines {
		if i == 0 {
			continue // Skip "xref" line
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 2 {
			firstObj, err1 := strconv.Atoi(fields[0])
			_, err2 := strconv.Atoi(fields[1])
			if err1 == nil && err2 == nil {
				currentObjNum = firstObj
				inSubsection = true
				continue
			}
		}

		if inSubsection && len(fields) >= 3 {
			offset, err1 := strconv.ParseInt(fields[0], 10, 64)
			_, err2 := strconv.Atoi(fields[1])
			flag := fields[2]

			if err1 == nil && err2 == nil && flag == "n" {
				objMap[currentObjNum] = offset
			}
			currentObjNum++
		}
	}

	return objMap, nil
}
