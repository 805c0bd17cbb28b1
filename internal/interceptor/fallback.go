package interceptor

import (
	"log/slog"
	"net/http"
	"strings"

	"shellcache/internal/logging"
)

const offlineBody = "Offline - the requested resource is not cached and the network is unreachable.\n"

// serveOffline produces the degraded response after a network failure:
// document navigations get the cached root shell when one exists,
// everything else a synthetic 408.
func (i *Interceptor) serveOffline(w http.ResponseWriter, r *http.Request, key string, log *slog.Logger) {
	if isNavigation(r) {
		shell, found, err := i.ctrl.Store().Lookup(r.Context(), i.ctrl.LookupOrder(), "/")
		if err != nil {
			log.Warn("shell fallback lookup failed", logging.Error(err))
		}
		if found {
			log.Info("serving offline shell",
				logging.String(logging.FieldURL, key),
				logging.String(logging.FieldEventType, "offline_shell"))
			writeEntry(w, shell, "FALLBACK")
			return
		}
	}

	log.Info("serving offline placeholder",
		logging.String(logging.FieldURL, key),
		logging.String(logging.FieldEventType, "offline_placeholder"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(headerCache, "OFFLINE")
	w.WriteHeader(http.StatusRequestTimeout)
	_, _ = w.Write([]byte(offlineBody))
}

// isNavigation reports whether the request is a top-level document
// navigation.
func isNavigation(r *http.Request) bool {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		return dest == "document"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
