package server

import (
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/felipetovarhenao/markov-feedback/ai"
	"github.com/felipetovarhenao/markov-feedback/config"
	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/midi"
	"github.com/felipetovarhenao/markov-feedback/player"
	"github.com/felipetovarhenao/markov-feedback/store"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Handler serves the player.
type Handler struct {
	player *player.Player
}

// NewHandler returns the handlers of p.
func NewHandler(p *player.Player) *Handler {
	return &Handler{player: p}
}

// status maps errors of the pipeline to HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, ai.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ai.ErrNotTrained):
		return http.StatusPreconditionFailed
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, markov.ErrCancelled):
		return http.StatusRequestTimeout
	case errors.Is(err, markov.ErrInvalidOrder),
		errors.Is(err, markov.ErrEmptyTrainingSet),
		errors.Is(err, markov.ErrInvalidNote),
		errors.Is(err, config.ErrOutOfRange),
		errors.Is(err, midi.ErrInvalidFile),
		errors.Is(err, midi.ErrNoNotes),
		errors.Is(err, midi.ErrUnsupportedTimeFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := status(err)
	if code >= http.StatusInternalServerError {
		capture(c, err)
	}
	c.JSON(code, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}

// Health reports whether the AI is trained or learning.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"trained":  h.player.AI.IsTrained(),
		"learning": h.player.AI.IsLearning(),
	})
}

// GetSettings returns the current settings.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.player.Settings())
}

// PutSettings updates the settings. Fields left out of the body keep
// their current value.
func (h *Handler) PutSettings(c *gin.Context) {
	settings := h.player.Settings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.player.UpdateSettings(settings); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ioutil.ReadAll(f)
}

// Train reads the MIDI files uploaded as "files" and trains the AI on
// them.
func (h *Handler) Train(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var sources []player.Source
	for _, fh := range form.File["files"] {
		data, err := readFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sources = append(sources, player.Source{Name: fh.Filename, Data: data})
	}
	lesson, err := h.player.Teach(c.Request.Context(), sources)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// Generate improvises and returns the MIDI file as a download.
func (h *Handler) Generate(c *gin.Context) {
	improvisation, err := h.player.Improvise(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+improvisation.FileName)
	c.Header("X-Markov-Order", strconv.Itoa(improvisation.Order))
	c.Header("X-Generation-ID", improvisation.ID)
	c.Data(http.StatusOK, "audio/midi", improvisation.MIDI)
}

// Model returns the trained model, or the last boosted one with
// ?boosted=true.
func (h *Handler) Model(c *gin.Context) {
	boosted, _ := strconv.ParseBool(c.DefaultQuery("boosted", "false"))
	model, err := h.player.Model(boosted)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}
