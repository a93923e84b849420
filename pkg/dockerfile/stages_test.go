package dockerfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestStages(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     []string
	}{
		{
			name:     "multi-stage with unnamed final",
			contents: "FROM golang:1.20 AS builder\nFROM scratch\nFROM scratch AS final",
			want:     []string{"builder", "final"},
		},
		{
			name:     "no named stages",
			contents: "FROM ubuntu:20.04\nRUN apt-get update",
			want:     nil,
		},
		{
			name:     "case insensitive keywords",
			contents: "from golang:1.20 as Builder\nFROM alpine As runtime",
			want:     []string{"Builder", "runtime"},
		},
		{
			name:     "leading whitespace",
			contents: "  \tFROM node:18 AS deps\nCOPY . .",
			want:     []string{"deps"},
		},
		{
			name:     "platform flag before image",
			contents: "FROM --platform=linux/amd64 golang:1.20 AS builder",
			want:     []string{"builder"},
		},
		{
			name:     "noise after stage name",
			contents: "FROM golang:1.20 AS builder # build stage",
			want:     []string{"builder"},
		},
		{
			name:     "duplicates preserved in order",
			contents: "FROM a AS build\nFROM b AS test\nFROM c AS build",
			want:     []string{"build", "test", "build"},
		},
		{
			name:     "commented FROM ignored",
			contents: "# FROM golang AS ghost\nFROM golang:1.20 AS builder",
			want:     []string{"builder"},
		},
		{
			name:     "stage used as base of later stage",
			contents: "FROM golang:1.20 AS base\nFROM base AS builder\nFROM builder",
			want:     []string{"base", "builder"},
		},
		{
			name:     "empty input",
			contents: "",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stages(strings.NewReader(tt.contents))
			if err != nil {
				t.Fatalf("Stages() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Stages() = %v, want %v", got, tt.want)
			}
		})
	}
}

// A re-scan of the same contents must yield the same result.
func TestStagesRescan(t *testing.T) {
	contents := "FROM golang:1.20 AS builder\nFROM scratch AS final"

	first, err := Stages(strings.NewReader(contents))
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}
	second, err := Stages(strings.NewReader(contents))
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-scan differs: %v vs %v", first, second)
	}
}

func TestStagesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dockerfile")
	if err := os.WriteFile(path, []byte("FROM golang:1.20 AS builder\nFROM scratch"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := StagesFromFile(path)
	if err != nil {
		t.Fatalf("StagesFromFile() error = %v", err)
	}
	if want := []string{"builder"}; !reflect.DeepEqual(got, want) {
		t.Errorf("StagesFromFile() = %v, want %v", got, want)
	}

	if _, err := StagesFromFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("StagesFromFile() expected error for missing file")
	}
}
