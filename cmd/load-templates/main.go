package main

import (
	"flag"
	"log"

	"word-party/internal/config"
	"word-party/internal/db"
)

func main() {
	templatesPath := flag.String("templates", "seed/story_templates.csv", "path to story templates csv")
	wordsPath := flag.String("words", "seed/word_bank.csv", "path to word bank csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	templates, err := db.LoadStoryTemplates(conn, *templatesPath)
	if err != nil {
		log.Fatalf("failed to load story templates: %v", err)
	}
	words, err := db.LoadWordBank(conn, *wordsPath)
	if err != nil {
		log.Fatalf("failed to load word bank: %v", err)
	}
	log.Printf("loaded %d templates and %d word bank entries", templates, words)
}
