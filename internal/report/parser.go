package report

import (
	"bytes"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetCalls   = "Calls"
	sheetUsers   = "Users"
	sheetFilters = "Filters"

	// headerScanRows bounds how far down a sheet the header row may sit.
	headerScanRows = 10
)

// Parser decodes provider call-report workbooks.
type Parser struct {
	loc   *time.Location
	clock func() time.Time
}

// NewParser returns a Parser that interprets zone-less report times in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, clock: time.Now}
}

// Parse detects the report layout and decodes its rows. A missing Calls and
// Users sheet is a *FormatError naming the sheets that were found.
func (p *Parser) Parse(data []byte) (Report, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Report{Kind: KindUnknown}, unreadable("unreadable workbook: %v", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	sheets := f.GetSheetList()
	rep := Report{Kind: KindUnknown, Sheets: sheets}
	has := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		has[s] = true
	}

	switch {
	case has[sheetCalls]:
		rep.Kind = KindCalls
	case has[sheetUsers]:
		rep.Kind = KindUsers
	default:
		return rep, unreadable("no %q or %q sheet (found: %s)", sheetCalls, sheetUsers, sheetList(sheets))
	}

	rep.Date, rep.DateFromFilters = p.reportDate(f, has[sheetFilters], date1904)

	switch rep.Kind {
	case KindCalls:
		rows, err := f.GetRows(sheetCalls, excelize.Options{RawCellValue: true})
		if err != nil {
			return rep, unreadable("read %s sheet: %v", sheetCalls, err)
		}
		rep.Calls = p.callRows(f, rows, date1904)
	case KindUsers:
		rows, err := f.GetRows(sheetUsers, excelize.Options{RawCellValue: true})
		if err != nil {
			return rep, unreadable("read %s sheet: %v", sheetUsers, err)
		}
		rep.Users = userRows(f, rows)
	}
	return rep, nil
}

// reportDate reads "From Time" on the Filters sheet, either beside the label
// or directly below it, and falls back to today.
func (p *Parser) reportDate(f *excelize.File, hasFilters, date1904 bool) (time.Time, bool) {
	now := p.clock().In(p.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	if !hasFilters {
		return today, false
	}
	rows, err := f.GetRows(sheetFilters, excelize.Options{RawCellValue: true})
	if err != nil {
		return today, false
	}
	for i, row := range rows {
		for j, cell := range row {
			if !isVariant(normalizeHeader(cell), hdrFromTime) {
				continue
			}
			candidates := []string{cellAt(row, j+1)}
			if i+1 < len(rows) {
				candidates = append(candidates, cellAt(rows[i+1], j))
			}
			for _, c := range candidates {
				if d, ok := ParseDate(c, date1904, p.loc); ok {
					return d, true
				}
			}
			return today, false
		}
	}
	return today, false
}

func (p *Parser) callRows(f *excelize.File, rows [][]string, date1904 bool) []CallRow {
	header, start := findHeader(rows, callHeaders)
	var out []CallRow
	for i := start; i < len(rows); i++ {
		row, raw, ok := rowMap(header, rows[i])
		if !ok {
			continue
		}
		cr := CallRow{
			Line:            i + 1,
			ExternalID:      firstPresent(row, hdrCallID),
			Direction:       firstPresent(row, hdrDirection),
			FromNumber:      firstPresent(row, hdrFromNumber),
			FromName:        firstPresent(row, hdrFromName),
			ToNumber:        firstPresent(row, hdrToNumber),
			ToName:          firstPresent(row, hdrToName),
			Result:          firstPresent(row, hdrResult),
			DurationSeconds: durationCell(f, sheetCalls, header, rows[i], i+1, hdrDuration),
			Raw:             raw,
		}
		if t, ok := ParseTimestamp(firstPresent(row, hdrStartTime), date1904, p.loc); ok {
			cr.StartedAt = &t
		}
		out = append(out, cr)
	}
	return out
}

func userRows(f *excelize.File, rows [][]string) []UserRow {
	header, start := findHeader(rows, userHeaders)
	var out []UserRow
	for i := start; i < len(rows); i++ {
		row, _, ok := rowMap(header, rows[i])
		if !ok {
			continue
		}
		ur := UserRow{
			Line:              i + 1,
			Name:              firstPresent(row, hdrUserName),
			InboundCalls:      parseCount(firstPresent(row, hdrInbound)),
			OutboundCalls:     parseCount(firstPresent(row, hdrOutbound)),
			HandleTimeSeconds: durationCell(f, sheetUsers, header, rows[i], i+1, hdrHandleTime),
		}
		if total := firstPresent(row, hdrTotal); total != "" {
			ur.TotalCalls = parseCount(total)
		} else {
			ur.TotalCalls = ur.InboundCalls + ur.OutboundCalls
		}
		out = append(out, ur)
	}
	return out
}

// findHeader picks the row among the first few that covers the most known
// fields and returns it with the index of the first data row.
func findHeader(rows [][]string, fields [][]string) ([]string, int) {
	best, bestScore := -1, 0
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if s := headerScore(rows[i], fields); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		for i, r := range rows {
			if !blank(r) {
				return r, i + 1
			}
		}
		return nil, len(rows)
	}
	return rows[best], best + 1
}

// rowMap keys cells by normalized header. ok is false for blank rows.
func rowMap(header, cells []string) (map[string]string, map[string]string, bool) {
	if blank(cells) {
		return nil, nil, false
	}
	row := make(map[string]string, len(header))
	raw := make(map[string]string, len(header))
	for j, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		v := strings.TrimSpace(cellAt(cells, j))
		key := normalizeHeader(name)
		if _, dup := row[key]; !dup {
			row[key] = v
		}
		raw[name] = v
	}
	return row, raw, true
}

// durationCell decodes the first non-blank duration column of a row.
// Only numeric cells are read as day fractions.
func durationCell(f *excelize.File, sheet string, header, cells []string, line int, variants []string) int {
	for _, v := range variants {
		for j, h := range header {
			if normalizeHeader(h) != v {
				continue
			}
			raw := strings.TrimSpace(cellAt(cells, j))
			if raw == "" {
				break
			}
			return DecodeDuration(raw, numericCell(f, sheet, j+1, line))
		}
	}
	return 0
}

func numericCell(f *excelize.File, sheet string, col, row int) bool {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return false
	}
	return typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isVariant(key string, variants []string) bool {
	for _, v := range variants {
		if key == v {
			return true
		}
	}
	return false
}
