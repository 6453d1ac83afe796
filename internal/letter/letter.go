package letter

import (
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

// Sender is the return address printed in the letter head.
type Sender struct {
	Name  string
	Email string
}

// Render writes a printable A4 letter for req to w, for companies that only
// accept requests by post.
func Render(w io.Writer, req erasure.Request, company erasure.Company, sender Sender, printed time.Time) error {
	if strings.TrimSpace(req.Body) == "" {
		return errors.NotValidf("request %d without body", req.ID)
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(req.Subject), false)
	pdf.SetMargins(25, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 9)
	head := sender.Name
	if sender.Email != "" {
		if head != "" {
			head += " · "
		}
		head += sender.Email
	}
	if head == "" {
		head = req.Requester.Name
	}
	pdf.Cell(0, 5, tr(head))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	recipient := []string{company.Name}
	if company.DataProtectionOfficer != "" {
		recipient = append(recipient, dpoLine(req.Language, company.DataProtectionOfficer))
	}
	if company.Address != "" {
		recipient = append(recipient, strings.Split(company.Address, "\n")...)
	}
	for _, line := range recipient {
		pdf.Cell(0, 6, tr(strings.TrimSpace(line)))
		pdf.Ln(6)
	}
	pdf.Ln(8)

	pdf.CellFormat(0, 6, tr(printed.Format("02.01.2006")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 6, tr(req.Subject), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5.5, tr(req.Body), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return errors.Annotate(err, "rendering letter")
	}
	return nil
}

func dpoLine(language, dpo string) string {
	if language == "en" {
		return "Attn: Data Protection Officer " + dpo
	}
	return "z. Hd. Datenschutzbeauftragte/r " + dpo
}
