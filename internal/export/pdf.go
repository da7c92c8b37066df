// Package export renders a finished work order as a printable PDF report.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/shiftlog/shiftlog/pkg/models"
)

const (
	pageMargin = 15.0
	labelWidth = 45.0
	photoWidth = 80.0
)

// WriteJobReport renders the job as a single A4 page (flowing onto more
// pages when the photos need the room) and writes the PDF to w.
func WriteJobReport(w io.Writer, job models.Job) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Reporte de Trabajo"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, tr("Folio: "+job.ID), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	fields := []struct {
		label string
		value string
	}{
		{"Área", job.Area},
		{"Tipo de trabajo", job.WorkType},
		{"Técnico", job.TechnicianName},
		{"Turno", job.Shift},
		{"Inicio", job.CreatedAt},
		{"Término", job.FinishedAt},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, f := range fields {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, 7, tr(f.label), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(f.value), "B", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	writeParagraph(pdf, tr, "Descripción del trabajo", job.Description)
	if strings.TrimSpace(job.AdditionalComments) != "" {
		writeParagraph(pdf, tr, "Comentarios adicionales", job.AdditionalComments)
	}

	writePhoto(pdf, tr, "Foto antes", job.BeforePhoto)
	writePhoto(pdf, tr, "Foto después", job.AfterPhoto)

	writeSignature(pdf, tr, job)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeParagraph(pdf *fpdf.Fpdf, tr func(string) string, title, body string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(body), "", "L", false)
	pdf.Ln(3)
}

func writePhoto(pdf *fpdf.Fpdf, tr func(string) string, title string, dataURL *string) {
	if dataURL == nil || *dataURL == "" {
		return
	}
	imgType, raw, err := decodeDataURL(*dataURL)
	if err != nil {
		// an unreadable photo must not sink the whole report
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, tr(title+": imagen no disponible"), "", 1, "L", false, 0, "")
		return
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")

	name := title
	opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	pdf.ImageOptions(name, pageMargin, pdf.GetY(), photoWidth, 0, true, opts, 0, "")
	pdf.Ln(4)
}

func writeSignature(pdf *fpdf.Fpdf, tr func(string) string, job models.Job) {
	pdf.Ln(6)
	if imgType, raw, err := decodeDataURL(job.Signature); err == nil {
		opts := fpdf.ImageOptions{ImageType: imgType}
		pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(raw))
		pdf.ImageOptions("signature", pageMargin, pdf.GetY(), 50, 0, true, opts, 0, "")
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(70, 6, "", "T", 1, "L", false, 0, "")
	pdf.CellFormat(70, 5, tr("Firma: "+job.TechnicianName), "", 1, "L", false, 0, "")
}

// decodeDataURL splits a "data:image/png;base64,..." URL into the fpdf image
// type and the raw bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	const prefix = "data:image/"
	if !strings.HasPrefix(dataURL, prefix) {
		return "", nil, fmt.Errorf("not an image data url")
	}
	rest := strings.TrimPrefix(dataURL, prefix)
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("missing base64 payload")
	}

	imgType := strings.ToUpper(rest[:sep])
	if imgType == "JPEG" || imgType == "JPG" {
		imgType = "JPG"
	}

	raw, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}
	return imgType, raw, nil
}
