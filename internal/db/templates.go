package db

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type templateRecord struct {
	Category     string
	Title        string
	TemplateText string
	Types        []string
}

// LoadStoryTemplates reads templates from a CSV and upserts them into story_templates.
// Columns: category, title, template text, semicolon-separated placeholder types in
// position order. The template text references placeholders as {0}, {1}, ...
func LoadStoryTemplates(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	records, err := readTemplates(path)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		placeholders := make([]map[string]any, 0, len(record.Types))
		for i, wordType := range record.Types {
			placeholders = append(placeholders, map[string]any{
				"position": i,
				"type":     wordType,
			})
		}
		raw, err := json.Marshal(placeholders)
		if err != nil {
			return inserted, err
		}
		entry := StoryTemplate{
			Category:     record.Category,
			Title:        record.Title,
			TemplateText: record.TemplateText,
			Placeholders: datatypes.JSON(raw),
			Active:       true,
		}
		if err := conn.FirstOrCreate(&entry, StoryTemplate{Category: entry.Category, Title: entry.Title}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// LoadWordBank reads curated words from a CSV (word, type) and upserts them.
func LoadWordBank(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, err
	}
	inserted := 0
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		word := strings.TrimSpace(row[0])
		wordType := strings.ToLower(strings.TrimSpace(row[1]))
		if word == "" || wordType == "" {
			continue
		}
		entry := WordBankEntry{Word: word, Type: wordType, Active: true}
		if err := conn.FirstOrCreate(&entry, WordBankEntry{Word: word, Type: wordType}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func readTemplates(path string) ([]templateRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []templateRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 4 {
			continue
		}
		record := templateRecord{
			Category:     strings.ToLower(strings.TrimSpace(row[0])),
			Title:        strings.TrimSpace(row[1]),
			TemplateText: strings.TrimSpace(row[2]),
		}
		for _, wordType := range strings.Split(row[3], ";") {
			wordType = strings.ToLower(strings.TrimSpace(wordType))
			if wordType != "" {
				record.Types = append(record.Types, wordType)
			}
		}
		if record.Category == "" || record.TemplateText == "" || len(record.Types) == 0 {
			continue
		}
		if countPlaceholderTokens(record.TemplateText) != len(record.Types) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func countPlaceholderTokens(text string) int {
	count := 0
	for i := 0; ; i++ {
		if !strings.Contains(text, "{"+strconv.Itoa(i)+"}") {
			break
		}
		count++
	}
	return count
}
