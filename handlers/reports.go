package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/services"
)

// DownloadReport streams one of the CSV exports as an attachment. The body
// is rendered fully before any byte is sent so a failure still gets a JSON
// error.
func (h *Handler) DownloadReport(c *gin.Context) {
	kind, err := services.ParseReportKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.Ledger.WriteReport(c.Request.Context(), &buf, kind); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+h.Ledger.ReportFilename(kind)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": services.ReportKinds})
}
