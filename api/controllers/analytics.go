package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func AnalyticsDashboard(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "analytics")
			return
		}
		dashboard, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

// AnalyticsExport streams the dashboard as an xlsx attachment. The workbook is
// built in memory first so a failure still yields a JSON error.
func AnalyticsExport(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "analytics")
			return
		}
		var buf bytes.Buffer
		if err := svc.ExportWorkbook(r.Context(), &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("pos-report-%s.xlsx", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
