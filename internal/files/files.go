/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package files

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxUploadSize bounds the bytes read from one recipient list.
const MaxUploadSize = 1 << 20

var ErrEmptyList = errors.New("recipient list is empty")

// Recipient is one parsed row of an uploaded address list. Amount is zero
// when the list carries no amount column.
type Recipient struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Tag     string          `json:"tag,omitempty"`
}

var columnAliases = map[string]string{
	"address":     "address",
	"addr":        "address",
	"amount":      "amount",
	"tag":         "tag",
	"addresstag":  "tag",
	"address_tag": "tag",
	"memo":        "tag",
}

// ParseRecipients reads a CSV or JSON recipient list. The format is taken
// from the file extension and falls back to sniffing the content.
func ParseRecipients(reader io.Reader, filename string) ([]Recipient, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}

	fileType, err := DetectFileType(data, filename)
	if err != nil {
		return nil, fmt.Errorf("error detecting file type: %w", err)
	}

	var recipients []Recipient
	switch fileType {
	case "text/csv", "text/csv; charset=utf-8":
		recipients, err = ProcessCSV(bytes.NewReader(data))
	case "application/json":
		recipients, err = ProcessJSON(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrEmptyList
	}
	return recipients, nil
}

// DetectFileType attempts to detect the file type based on its extension or content.
func DetectFileType(data []byte, filename string) (string, error) {
	if mimeType := DetectByExtension(filename); mimeType != "" {
		return mimeType, nil
	}
	return DetectByContent(data)
}

// DetectByExtension detects the MIME type by the file extension.
func DetectByExtension(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case "", ".txt":
		return ""
	default:
		return mime.TypeByExtension(ext)
	}
}

// DetectByContent detects the MIME type based on the first 512 bytes.
func DetectByContent(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)

	switch {
	case mimeType == "application/octet-stream", strings.HasPrefix(mimeType, "text/plain"):
		return AnalyzeTextContent(data)
	case strings.HasPrefix(mimeType, "text/csv"):
		return "text/csv", nil
	default:
		return mimeType, nil
	}
}

// AnalyzeTextContent tells CSV and JSON apart in plain text content.
func AnalyzeTextContent(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if json.Valid(trimmed) {
		return "application/json", nil
	}
	if LooksLikeCSV(trimmed) {
		return "text/csv", nil
	}
	return "text/plain", nil
}

// LooksLikeCSV reports whether every non empty line has the field count of
// the header line.
func LooksLikeCSV(data []byte) bool {
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) < 2 {
		return false
	}

	fields := bytes.Count(lines[0], []byte(",")) + 1
	for _, line := range lines[1:] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte(","))+1 != fields {
			return false
		}
	}

	return fields > 1
}

// ProcessCSV parses a headed CSV list. Only the address column is required.
func ProcessCSV(reader io.Reader) ([]Recipient, error) {
	csvReader := csv.NewReader(bufio.NewReader(reader))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV headers: %w", err)
	}

	columnMap, err := createColumnMap(headers)
	if err != nil {
		return nil, err
	}

	return processCSVRows(csvReader, columnMap)
}

func processCSVRows(csvReader *csv.Reader, columnMap map[string]int) ([]Recipient, error) {
	var recipients []Recipient
	var errs []error
	rowNum := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			errs = append(errs, fmt.Errorf("error reading row %d: %w", rowNum, err))
			continue
		}
		if isBlank(record) {
			continue
		}

		recipient, err := parseRecipient(record, columnMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing row %d: %w", rowNum, err))
			continue
		}
		recipients = append(recipients, recipient)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("encountered %d errors while processing CSV: %w", len(errs), errors.Join(errs...))
	}
	return recipients, nil
}

// createColumnMap maps the canonical column names to their indices.
func createColumnMap(headers []string) (map[string]int, error) {
	columnMap := make(map[string]int)
	for i, header := range headers {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			columnMap[canonical] = i
		}
	}

	if _, exists := columnMap["address"]; !exists {
		return nil, errors.New("required column 'address' not found in CSV")
	}
	return columnMap, nil
}

func parseRecipient(record []string, columnMap map[string]int) (Recipient, error) {
	address, err := getRequiredField(record, columnMap, "address")
	if err != nil {
		return Recipient{}, err
	}
	recipient := Recipient{Address: address, Tag: getOptionalField(record, columnMap, "tag")}

	if raw := getOptionalField(record, columnMap, "amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return Recipient{}, fmt.Errorf("invalid amount %q", raw)
		}
		recipient.Amount = amount
	}
	return recipient, nil
}

// getRequiredField retrieves a field from a CSV record, ensuring it is not empty.
func getRequiredField(record []string, columnMap map[string]int, field string) (string, error) {
	value := getOptionalField(record, columnMap, field)
	if value == "" {
		return "", fmt.Errorf("required field '%s' is empty", field)
	}
	return value, nil
}

func getOptionalField(record []string, columnMap map[string]int, field string) string {
	if index, exists := columnMap[field]; exists && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

type jsonRecipient struct {
	Address    string          `json:"address"`
	Amount     decimal.Decimal `json:"amount"`
	Tag        string          `json:"tag"`
	AddressTag string          `json:"addressTag"`
}

// ProcessJSON parses a JSON array of recipients. Both "tag" and
// "addressTag" are accepted for the memo.
func ProcessJSON(reader io.Reader) ([]Recipient, error) {
	var rows []jsonRecipient
	if err := json.NewDecoder(reader).Decode(&rows); err != nil {
		return nil, fmt.Errorf("error decoding JSON: %w", err)
	}

	recipients := make([]Recipient, 0, len(rows))
	for i, row := range rows {
		address := strings.TrimSpace(row.Address)
		if address == "" {
			return nil, fmt.Errorf("recipient %d has no address", i)
		}
		tag := strings.TrimSpace(row.Tag)
		if tag == "" {
			tag = strings.TrimSpace(row.AddressTag)
		}
		recipients = append(recipients, Recipient{Address: address, Amount: row.Amount, Tag: tag})
	}
	return recipients, nil
}
