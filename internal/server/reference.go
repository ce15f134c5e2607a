package server

import (
	"encoding/json"
	"fmt"
	"log"

	"word-party/internal/db"
)

// LoadReferenceData hydrates the store's read-only reference data (story
// templates and the curated word bank) from the database. Called once at
// startup; templates are selected at game creation from this snapshot.
func (s *Server) LoadReferenceData() error {
	if s.db == nil {
		return nil
	}

	var templateRows []db.StoryTemplate
	if err := s.db.Where("active = ?", true).Find(&templateRows).Error; err != nil {
		return fmt.Errorf("load story templates: %w", err)
	}
	templates := make([]Template, 0, len(templateRows))
	for _, row := range templateRows {
		var placeholders []Placeholder
		if err := json.Unmarshal(row.Placeholders, &placeholders); err != nil {
			log.Printf("skipping template with bad placeholders template_id=%d error=%v", row.ID, err)
			continue
		}
		templates = append(templates, Template{
			ID:           row.ID,
			Category:     row.Category,
			Title:        row.Title,
			Text:         row.TemplateText,
			Placeholders: placeholders,
			Active:       row.Active,
		})
	}
	s.store.SetTemplates(templates)

	var bankRows []db.WordBankEntry
	if err := s.db.Where("active = ?", true).Find(&bankRows).Error; err != nil {
		return fmt.Errorf("load word bank: %w", err)
	}
	entries := make([]WordBankEntry, 0, len(bankRows))
	for _, row := range bankRows {
		entries = append(entries, WordBankEntry{
			ID:     row.ID,
			Word:   row.Word,
			Type:   row.Type,
			Active: row.Active,
		})
	}
	s.store.SetWordBank(entries)

	log.Printf("reference data loaded templates=%d word_bank=%d", len(templates), len(entries))
	return nil
}
