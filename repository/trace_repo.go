package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/namastexlabs/automagik-omni-go/domains/trace"
	"gorm.io/gorm"
)

// TraceRepository is the GORM-backed domains/trace.Store. Payloads whose
// marshaled size exceeds the configured threshold are stored flate-
// compressed; smaller ones are stored as-is to avoid the fixed overhead of
// the deflate container on tiny snapshots.
type TraceRepository struct {
	db                 *gorm.DB
	compressThresholdB int
}

func NewTraceRepository(db *gorm.DB, compressThresholdBytes int) *TraceRepository {
	return &TraceRepository{db: db, compressThresholdB: compressThresholdBytes}
}

var _ trace.Store = (*TraceRepository)(nil)

func (r *TraceRepository) CreateInbound(ctx context.Context, instanceName, channelType, senderID string, msgType trace.MessageType, rawEnvelope any) (string, error) {
	traceID := uuid.NewString()
	model := messageTraceModel{
		TraceID:      traceID,
		InstanceName: instanceName,
		ChannelType:  channelType,
		Direction:    string(trace.DirectionInbound),
		SenderID:     senderID,
		MessageType:  string(msgType),
		TraceStatus:  string(trace.StatusReceived),
		ReceivedAt:   time.Now().UTC(),
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = r.db.WithContext(ctx).Create(&model).Error
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	if err != nil {
		return "", &trace.ErrTraceStore{Cause: err}
	}

	if rawEnvelope != nil {
		_ = r.LogStage(ctx, traceID, trace.StageWebhookReceived, rawEnvelope, nil)
	}
	return traceID, nil
}

func (r *TraceRepository) RecordOutbound(ctx context.Context, instanceName, channelType, recipientID string, msgType trace.MessageType, envelope any, statusCode *int) (string, error) {
	traceID := uuid.NewString()
	now := time.Now().UTC()
	model := messageTraceModel{
		TraceID:      traceID,
		InstanceName: instanceName,
		ChannelType:  channelType,
		Direction:    string(trace.DirectionOutbound),
		SenderID:     recipientID,
		MessageType:  string(msgType),
		TraceStatus:  string(trace.StatusCompleted),
		ReceivedAt:   now,
		CompletedAt:  &now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", &trace.ErrTraceStore{Cause: err}
	}
	if envelope != nil {
		_ = r.LogStage(ctx, traceID, trace.StageEvolutionSend, envelope, statusCode)
	}
	return traceID, nil
}

func (r *TraceRepository) LogStage(ctx context.Context, traceID string, stage trace.Stage, payload any, statusCode *int) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &trace.ErrTraceStore{Cause: err}
	}

	stored := raw
	compressed := false
	sizeCompressed := len(raw)
	if len(raw) > r.compressThresholdB {
		if c, err := deflate(raw); err == nil {
			stored = c
			compressed = true
			sizeCompressed = len(c)
		}
	}

	ratio := 1.0
	if len(raw) > 0 {
		ratio = float64(sizeCompressed) / float64(len(raw))
	}

	model := tracePayloadModel{
		ID:               uuid.NewString(),
		TraceID:          traceID,
		Stage:            string(stage),
		PayloadType:      "json",
		PayloadBytes:     stored,
		Compressed:       compressed,
		SizeOriginal:     len(raw),
		SizeCompressed:   sizeCompressed,
		CompressionRatio: ratio,
		ContainsMedia:    bytes.Contains(raw, []byte(`"media_url"`)),
		ContainsBase64:   bytes.Contains(raw, []byte(`"base64"`)),
		StatusCode:       statusCode,
		Timestamp:        time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return &trace.ErrTraceStore{Cause: err}
	}
	return nil
}

func (r *TraceRepository) UpdateStatus(ctx context.Context, traceID string, status trace.Status, errorKind string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model messageTraceModel
		if err := tx.First(&model, "trace_id = ?", traceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &trace.ErrTraceStore{Cause: err}
			}
			return err
		}
		if trace.Status(model.TraceStatus).Terminal() {
			return &trace.ErrTraceClosed{TraceID: traceID}
		}

		model.TraceStatus = string(status)
		if errorKind != "" {
			model.ErrorKind.String = errorKind
			model.ErrorKind.Valid = true
		}
		if status.Terminal() {
			now := time.Now().UTC()
			model.CompletedAt = &now
		}
		return tx.Save(&model).Error
	})
}

func (r *TraceRepository) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var traceIDs []string
	if err := r.db.WithContext(ctx).Model(&messageTraceModel{}).
		Where("received_at < ?", cutoff).Pluck("trace_id", &traceIDs).Error; err != nil {
		return 0, err
	}
	if len(traceIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trace_id IN ?", traceIDs).Delete(&tracePayloadModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("trace_id IN ?", traceIDs).Delete(&messageTraceModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *TraceRepository) List(ctx context.Context, filter trace.ListFilter) ([]trace.MessageTrace, int, error) {
	q := r.db.WithContext(ctx).Model(&messageTraceModel{})
	q = applyTraceFilter(q, filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var models []messageTraceModel
	err := q.Order("received_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]trace.MessageTrace, len(models))
	for i, m := range models {
		out[i] = fromMessageTraceModel(m)
	}
	return out, int(total), nil
}

func (r *TraceRepository) Payloads(ctx context.Context, traceID string) ([]trace.Payload, error) {
	var models []tracePayloadModel
	if err := r.db.WithContext(ctx).Where("trace_id = ?", traceID).
		Order("timestamp").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]trace.Payload, len(models))
	for i, m := range models {
		payloadBytes := m.PayloadBytes
		if m.Compressed {
			if raw, err := inflate(m.PayloadBytes); err == nil {
				payloadBytes = raw
			}
		}
		out[i] = trace.Payload{
			ID:               m.ID,
			TraceID:          m.TraceID,
			Stage:            trace.Stage(m.Stage),
			PayloadType:      m.PayloadType,
			PayloadBytes:     payloadBytes,
			SizeOriginal:     m.SizeOriginal,
			SizeCompressed:   m.SizeCompressed,
			CompressionRatio: m.CompressionRatio,
			ContainsMedia:    m.ContainsMedia,
			ContainsBase64:   m.ContainsBase64,
			StatusCode:       m.StatusCode,
			Timestamp:        m.Timestamp,
		}
	}
	return out, nil
}

func (r *TraceRepository) Analytics(ctx context.Context, filter trace.ListFilter) (trace.Analytics, error) {
	q := r.db.WithContext(ctx).Model(&messageTraceModel{})
	q = applyTraceFilter(q, filter)

	var models []messageTraceModel
	if err := q.Find(&models).Error; err != nil {
		return trace.Analytics{}, err
	}

	analytics := trace.Analytics{
		TotalTraces:   len(models),
		ByStatus:      map[string]int{},
		ByMessageType: map[string]int{},
		ByInstance:    map[string]int{},
	}
	traceIDs := make([]string, len(models))
	for i, m := range models {
		analytics.ByStatus[m.TraceStatus]++
		analytics.ByMessageType[m.MessageType]++
		analytics.ByInstance[m.InstanceName]++
		traceIDs[i] = m.TraceID
	}

	var totalBytes int64
	if len(traceIDs) > 0 {
		if err := r.db.WithContext(ctx).Model(&tracePayloadModel{}).
			Where("trace_id IN ?", traceIDs).
			Select("COALESCE(SUM(size_original), 0)").Scan(&totalBytes).Error; err != nil {
			return trace.Analytics{}, err
		}
	}
	analytics.TotalPayloadSize = humanize.Bytes(uint64(totalBytes))
	return analytics, nil
}

func applyTraceFilter(q *gorm.DB, filter trace.ListFilter) *gorm.DB {
	if filter.InstanceName != "" {
		q = q.Where("instance_name = ?", filter.InstanceName)
	}
	if filter.Phone != "" {
		q = q.Where("sender_phone = ?", filter.Phone)
	}
	if filter.TraceStatus != "" {
		q = q.Where("trace_status = ?", string(filter.TraceStatus))
	}
	if filter.MessageType != "" {
		q = q.Where("message_type = ?", string(filter.MessageType))
	}
	if filter.StartDate != nil {
		q = q.Where("received_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("received_at <= ?", *filter.EndDate)
	}
	return q
}

func fromMessageTraceModel(m messageTraceModel) trace.MessageTrace {
	return trace.MessageTrace{
		TraceID:        m.TraceID,
		InstanceName:   m.InstanceName,
		ChannelType:    m.ChannelType,
		Direction:      trace.Direction(m.Direction),
		SenderID:       m.SenderID,
		SenderPhone:    m.SenderPhone.String,
		MessageType:    trace.MessageType(m.MessageType),
		TraceStatus:    trace.Status(m.TraceStatus),
		ReceivedAt:     m.ReceivedAt,
		CompletedAt:    m.CompletedAt,
		ErrorKind:      m.ErrorKind.String,
		AgentSessionID: m.AgentSessionID.String,
		AgentUserID:    m.AgentUserID.String,
	}
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
