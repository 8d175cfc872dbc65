package www

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/icodeforyou/doctypes-dashboard/database"
)

func NewSysInfoHandler(logger *slog.Logger, tm *TemplateManager, db *database.Database, sysInfo SysInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			SysInfo
			Uptime     string
			LastBackup string
		}{
			SysInfo:    sysInfo,
			Uptime:     strings.TrimSpace(humanize.RelTime(sysInfo.StartedAt, time.Now(), "", "")),
			LastBackup: "none",
		}

		backups, err := db.ListBackups()
		if err != nil {
			logger.Warn("listing backups failed", slog.Any("error", err))
		} else if len(backups) > 0 {
			data.LastBackup = humanize.Time(backups[0].CreatedAt) + ", " + humanize.Bytes(uint64(backups[0].Size))
		}

		buf, err := tm.Execute("sys_info.html", data)
		if err != nil {
			logger.Error("handling sys_info request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		buf.WriteTo(w)
	}
}
