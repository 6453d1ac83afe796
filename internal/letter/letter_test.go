package letter

import (
	"bytes"
	"testing"
	"time"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

func TestRenderProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	req := erasure.Request{
		ID:       7,
		Language: "de",
		Subject:  "DSGVO Löschantrag gemäß Art. 17 DSGVO",
		Body:     "Sehr geehrte Damen und Herren,\n\nich stelle hiermit Antrag auf Löschung.",
	}
	company := erasure.Company{Name: "Beispiel GmbH", Address: "Hauptstraße 1\n10115 Berlin", DataProtectionOfficer: "Dr. Müller"}
	err := Render(&buf, req, company, Sender{Name: "Erika Mustermann", Email: "erika@example.test"}, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if buf.Len() < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestRenderRejectsEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, erasure.Request{ID: 1}, erasure.Company{}, Sender{}, time.Now()); err == nil {
		t.Fatal("expected error for empty body")
	}
}
