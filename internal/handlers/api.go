// Package handlers exposes the HTTP control surface: probing video
// metadata, launching download tasks, polling progress, and the
// sleep/wake endpoints.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"snatch/internal/activity"
	"snatch/internal/downloader"
	xlog "snatch/internal/log"
	"snatch/internal/media"
	"snatch/internal/task"
)

// API bundles the handler dependencies.
type API struct {
	registry    *task.Registry
	downloader  *downloader.Downloader
	engine      media.Engine
	avail       *activity.Availability
	tracker     *activity.Tracker
	idleTimeout time.Duration
	downloadDir string
	log         zerolog.Logger
}

// NewAPI creates the handler set.
func NewAPI(
	registry *task.Registry,
	dl *downloader.Downloader,
	engine media.Engine,
	avail *activity.Availability,
	tracker *activity.Tracker,
	idleTimeout time.Duration,
	downloadDir string,
) *API {
	return &API{
		registry:    registry,
		downloader:  dl,
		engine:      engine,
		avail:       avail,
		tracker:     tracker,
		idleTimeout: idleTimeout,
		downloadDir: downloadDir,
		log:         xlog.WithComponent("api"),
	}
}

// Register mounts all routes. Protected routes go through the sleep gate.
func (a *API) Register(e *echo.Echo) {
	e.GET("/api/health", a.Health)
	e.GET("/api/status", a.Status)
	e.GET("/api/wakeup", a.Wakeup)
	e.POST("/api/wakeup", a.Wakeup)

	e.GET("/api/info", a.Info, a.Gate)
	e.POST("/api/download", a.Download, a.Gate)
	e.GET("/api/progress/:id", a.Progress, a.Gate)
	e.POST("/api/cancel/:id", a.Cancel, a.Gate)
}

// Health reports liveness. Never gated.
func (a *API) Health(c echo.Context) error {
	a.tracker.Touch()
	return c.JSON(http.StatusOK, echo.Map{
		"status":       "ok",
		"state":        a.avail.State(),
		"download_dir": a.downloadDir,
	})
}

// Status reports the availability state and the configured idle timeout.
// Never gated, so clients can decide whether a wakeup call is needed.
func (a *API) Status(c echo.Context) error {
	a.tracker.Touch()
	return c.JSON(http.StatusOK, echo.Map{
		"state":        a.avail.State(),
		"idle_timeout": int(a.idleTimeout.Seconds()),
	})
}

// Wakeup arms the server and resets the idle clock.
func (a *API) Wakeup(c echo.Context) error {
	a.avail.Wake()
	return c.JSON(http.StatusOK, echo.Map{
		"state":   activity.StateAwake,
		"message": "Server is awake",
	})
}

// Info probes a URL for metadata and the selectable quality lists.
func (a *API) Info(c echo.Context) error {
	url := c.QueryParam("url")
	if url == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "URL is required"})
	}

	ctx := c.Request().Context()
	info, err := a.engine.Probe(ctx, url)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	videoQualities, audioQualities := media.DeriveQualities(info.Formats)

	resp := echo.Map{
		"title":           info.Title,
		"channel":         info.Channel,
		"duration":        info.Duration,
		"thumbnail":       info.Thumbnail,
		"video_qualities": videoQualities,
		"audio_qualities": audioQualities,
		"is_playlist":     media.IsPlaylistURL(url),
	}

	if media.IsPlaylistURL(url) {
		if pl, err := a.engine.ProbePlaylist(ctx, url, 50); err == nil {
			resp["playlist_title"] = pl.Title
			resp["playlist_count"] = len(pl.Entries)
		} else {
			a.log.Warn().Err(err).Str("url", url).Msg("playlist probe failed during info")
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL              string `json:"url"`
	Format           string `json:"format"`
	Quality          string `json:"quality"`
	DownloadPlaylist bool   `json:"download_playlist"`
}

// Download validates the request, registers a task and spawns the
// matching worker, returning the task id immediately.
func (a *API) Download(c echo.Context) error {
	var req DownloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Request body is required"})
	}
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "URL is required"})
	}

	kind := media.KindMP4
	if req.Format == string(media.KindMP3) {
		kind = media.KindMP3
	}
	quality := req.Quality
	if quality == "" {
		quality = "best"
	}

	isPlaylist := req.DownloadPlaylist && media.IsPlaylistURL(req.URL)
	t := a.registry.Create(isPlaylist)

	if isPlaylist {
		go a.downloader.DownloadPlaylist(t, req.URL, kind, quality)
	} else {
		go a.downloader.Download(t, req.URL, kind, quality)
	}

	a.log.Info().
		Str("task_id", t.ID).
		Str("format", string(kind)).
		Bool("playlist", isPlaylist).
		Msg("download started")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "task_id": t.ID})
}

// Progress returns a point-in-time snapshot of a task.
func (a *API) Progress(c echo.Context) error {
	t, err := a.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, t.Snapshot())
}

// Cancel requests cooperative cancellation of a playlist task. The
// worker observes the flag at its next item boundary.
func (a *API) Cancel(c echo.Context) error {
	t, err := a.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if !t.IsPlaylist {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only playlist downloads can be cancelled"})
	}
	if !t.Cancel() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "task already finished"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Download cancelled"})
}
