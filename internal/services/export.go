package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/moleculahq/molecula/internal/models"
)

// AnonymousRespondent replaces respondent identity in exports of anonymous surveys.
const AnonymousRespondent = "anonymous"

// cellSeparator joins multiple answer representations inside one CSV cell.
// csv.Writer quotes the field when the content requires it.
const cellSeparator = " | "

// ResponseRow is one CSV row: response metadata plus one cell per question
// in ordinal order.
type ResponseRow struct {
	ResponseID  string
	Respondent  string
	SubmittedAt string // RFC3339
	Cells       []string
}

// ExportResponsesCSV renders one row per response with a column per
// question. Fields containing commas, quotes or newlines are quoted with
// doubled internal quotes per encoding/csv.
func ExportResponsesCSV(questionHeaders []string, rows []ResponseRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := append([]string{"response_id", "respondent", "submitted_at"}, questionHeaders...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := append([]string{r.ResponseID, r.Respondent, r.SubmittedAt}, r.Cells...)
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// renderAnswerValue maps one answer payload to its export representation:
// raw text for text answers, the numeral for scale answers, option text
// for choice answers (falling back to the option id for orphans).
func renderAnswerValue(v models.AnswerValue, optionText map[string]string) string {
	switch t := v.(type) {
	case models.TextValue:
		return string(t)
	case models.ScaleValue:
		return strconv.Itoa(int(t))
	case models.OptionValue:
		if txt, ok := optionText[string(t)]; ok {
			return txt
		}
		return string(t)
	default:
		return ""
	}
}

func joinCell(parts []string) string {
	return strings.Join(parts, cellSeparator)
}
