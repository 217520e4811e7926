package rest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
)

// Payload type tags accepted by /receive.
const (
	TypeShips  = "ships"
	TypeAlarms = "alarms"
)

const (
	msgShipsReceived  = "Ships data received and cleaned successfully."
	msgAlarmsReceived = "Alarms data received successfully."
	msgInvalidType    = "Invalid type."
	msgInvalidData    = "Invalid POST data."
	msgCapacity       = "File size exceeded. Unable to save new data."
	msgStorageFailure = "Unable to save data."
)

var errEmptyPayload = errors.New("empty payload")

// receive stores a ships or alarms payload. The payload arrives either as a
// form with type and json_data fields or as a JSON body with a type query
// parameter.
func (h *handler) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	kind, data, err := readPayload(r)
	if err != nil {
		logger.WarnKV(ctx, "Rejected receive payload", "error", err)
		writeText(w, http.StatusBadRequest, msgInvalidData)

		return
	}

	switch kind {
	case TypeShips:
		h.receiveShips(w, r, data)
	case TypeAlarms:
		h.receiveAlarms(w, r, data)
	default:
		writeText(w, http.StatusBadRequest, msgInvalidType)
	}
}

func (h *handler) receiveShips(w http.ResponseWriter, r *http.Request, data []byte) {
	ctx := r.Context()

	reports, err := decodeReports(data)
	if err != nil {
		metrics.SnapshotUpserts.WithLabelValues(metrics.ResultInvalid).Inc()
		logger.WarnKV(ctx, "Rejected ships payload", "error", err)
		writeText(w, http.StatusBadRequest, msgInvalidData)

		return
	}

	err = h.deps.Ships.Upsert(ctx, reports...)

	switch {
	case err == nil:
		metrics.SnapshotUpserts.WithLabelValues(metrics.ResultSuccess).Inc()
		logger.DebugKV(ctx, "Ships stored", "count", len(reports))
		writeText(w, http.StatusOK, msgShipsReceived)
	case errors.Is(err, vessel.ErrInvalidReport):
		metrics.SnapshotUpserts.WithLabelValues(metrics.ResultInvalid).Inc()
		logger.WarnKV(ctx, "Rejected ships payload", "error", err)
		writeText(w, http.StatusBadRequest, msgInvalidData)
	case errors.Is(err, snapshot.ErrCapacityExceeded):
		metrics.SnapshotUpserts.WithLabelValues(metrics.ResultCapacity).Inc()
		logger.WarnKV(ctx, "Snapshot store is full", "error", err)
		writeText(w, http.StatusRequestEntityTooLarge, msgCapacity)
	default:
		metrics.SnapshotUpserts.WithLabelValues(metrics.ResultFailure).Inc()
		logger.ErrorKV(ctx, "Failed to store ships", "error", err)
		writeText(w, http.StatusInternalServerError, msgStorageFailure)
	}
}

func (h *handler) receiveAlarms(w http.ResponseWriter, r *http.Request, data []byte) {
	ctx := r.Context()

	var fired alarm.Alarm
	if err := json.Unmarshal(data, &fired); err != nil {
		logger.WarnKV(ctx, "Rejected alarm payload", "error", err)
		writeText(w, http.StatusBadRequest, msgInvalidData)

		return
	}

	if fired.ID == "" {
		fired = alarm.New(fired.Name, fired.MMSI, fired.Reason, fired.Description, fired.Time)
	}

	if err := fired.Validate(); err != nil {
		logger.WarnKV(ctx, "Rejected alarm payload", "error", err)
		writeText(w, http.StatusBadRequest, msgInvalidData)

		return
	}

	if err := h.deps.Alarms.Append(ctx, fired); err != nil {
		logger.ErrorKV(ctx, "Failed to store alarm", "error", err, "mmsi", fired.MMSI)
		writeText(w, http.StatusInternalServerError, msgStorageFailure)

		return
	}

	if h.deps.Hub != nil {
		_ = h.deps.Hub.Deliver(ctx, fired)
	}

	logger.InfoKV(ctx, "Alarm received", "mmsi", fired.MMSI, "reason", fired.Reason)
	writeText(w, http.StatusOK, msgAlarmsReceived)
}

// read returns the stored ships snapshot or the full alarm list.
func (h *handler) read(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		data []byte
		err  error
	)

	switch r.URL.Query().Get("type") {
	case TypeShips:
		data, err = h.deps.Ships.Raw(ctx)
	case TypeAlarms:
		data, err = h.allAlarms(r)
	default:
		writeText(w, http.StatusBadRequest, msgInvalidType)

		return
	}

	if err != nil {
		logger.ErrorKV(ctx, "Failed to read store", "error", err)
		writeText(w, http.StatusInternalServerError, "Unable to read data.")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) allAlarms(r *http.Request) ([]byte, error) {
	all, err := h.deps.Alarms.Recent(r.Context(), 0)
	if err != nil {
		return nil, err
	}

	if all == nil {
		all = []alarm.Alarm{}
	}

	return json.Marshal(all)
}

func readPayload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, fmt.Errorf("read body: %w", err)
		}

		if len(bytes.TrimSpace(data)) == 0 {
			return "", nil, errEmptyPayload
		}

		return strings.TrimSpace(r.URL.Query().Get("type")), data, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return "", nil, fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return "", nil, fmt.Errorf("parse form: %w", err)
	}

	kind := strings.TrimSpace(r.FormValue("type"))
	data := strings.TrimSpace(r.FormValue("json_data"))

	if kind == "" || data == "" {
		return "", nil, errEmptyPayload
	}

	return kind, []byte(data), nil
}

// decodeReports accepts a single report object or an array of reports.
func decodeReports(data []byte) ([]vessel.Report, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reports []vessel.Report
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, fmt.Errorf("decode ships: %w", err)
		}

		if len(reports) == 0 {
			return nil, errEmptyPayload
		}

		return reports, nil
	}

	var report vessel.Report
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("decode ship: %w", err)
	}

	return []vessel.Report{report}, nil
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
