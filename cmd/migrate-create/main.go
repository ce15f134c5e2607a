package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	name := flag.Arg(0)
	if name == "" {
		log.Fatal("usage: migrate-create [-dir path] <name>")
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, name)

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(*dir, base+suffix)
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("file already exists: %s", path)
		}
		if err := os.WriteFile(path, []byte("-- "+name+"\n"), 0o644); err != nil {
			log.Fatalf("create %s: %v", path, err)
		}
		log.Printf("created %s", path)
	}
}
