// Package audit conserve la trace des actions des administrateurs.
package audit

import (
	"context"
	"time"

	"atelier_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"go.uber.org/zap"
)

const (
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionLogout         = "auth.logout"
	ActionProductCreate  = "product.create"
	ActionProductUpdate  = "product.update"
	ActionProductDelete  = "product.delete"
	ActionProductImage   = "product.image_upload"
	ActionOrderStatus    = "order.status"
	ActionPaymentRefund  = "payment.refund"
	ActionTestimonialOK  = "testimonial.approve"
	ActionTestimonialDel = "testimonial.delete"

	ResourceAuth        = "auth"
	ResourceProduct     = "product"
	ResourceOrder       = "order"
	ResourcePayment     = "payment"
	ResourceTestimonial = "testimonial"
)

// Clés de contexte gin posées par le middleware admin
const (
	CtxAdminID    = "admin_id"
	CtxAdminEmail = "admin_email"
	ctxTag        = "audit_tag"
)

type tag struct {
	action, resource, resourceID string
}

// Tag désigne l'action que le middleware d'audit enregistrera après le handler
func Tag(c *gin.Context, action, resource, resourceID string) {
	c.Set(ctxTag, tag{action: action, resource: resource, resourceID: resourceID})
}

// Tagged retourne l'entrée marquée par Tag, success selon le statut HTTP
func Tagged(c *gin.Context) (models.AuditEntry, bool) {
	v, ok := c.Get(ctxTag)
	if !ok {
		return models.AuditEntry{}, false
	}
	t := v.(tag)
	status := c.Writer.Status()
	return FromGin(c, t.action, t.resource, t.resourceID, status >= 200 && status < 400), true
}

type Recorder interface {
	Record(ctx context.Context, e models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// FromGin pré-remplit une entrée avec l'admin et le client de la requête
func FromGin(c *gin.Context, action, resource, resourceID string, success bool) models.AuditEntry {
	return models.AuditEntry{
		AdminID:    c.GetString(CtxAdminID),
		AdminEmail: c.GetString(CtxAdminEmail),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    success,
		At:         time.Now().UTC(),
	}
}

// RecordAsync n'attend pas Scylla, une erreur est seulement journalisée
func RecordAsync(r Recorder, e models.AuditEntry, log *zap.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Record(ctx, e); err != nil {
			log.Error("❌ Erreur enregistrement log audit", zap.String("action", e.Action), zap.Error(err))
		}
	}()
}

// LogRecorder écrit le journal d'audit dans les logs quand Scylla est absent
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (l *LogRecorder) Record(_ context.Context, e models.AuditEntry) error {
	l.log.Info("📝 audit",
		zap.String("admin_id", e.AdminID),
		zap.String("admin_email", e.AdminEmail),
		zap.String("action", e.Action),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.String("ip", e.IP),
		zap.Bool("success", e.Success),
	)
	return nil
}

func (l *LogRecorder) Recent(context.Context, int) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

// Scylla partitionne le journal par jour (UTC), plus récent d'abord
type Scylla struct {
	session *gocql.Session
	maxDays int
}

func NewScylla(session *gocql.Session) *Scylla {
	return &Scylla{session: session, maxDays: 7}
}

func (s *Scylla) EnsureSchema() error {
	return s.session.Query(`
		CREATE TABLE IF NOT EXISTS audit_log (
			day text,
			at timestamp,
			id timeuuid,
			admin_id text,
			admin_email text,
			action text,
			resource text,
			resource_id text,
			ip text,
			user_agent text,
			success boolean,
			PRIMARY KEY ((day), at, id)
		) WITH CLUSTERING ORDER BY (at DESC, id DESC)
		AND default_time_to_live = 31536000
	`).Exec()
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *Scylla) Record(ctx context.Context, e models.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	id := gocql.UUIDFromTime(e.At)

	return s.session.Query(`
		INSERT INTO audit_log (day, at, id, admin_id, admin_email, action, resource, resource_id, ip, user_agent, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dayKey(e.At), e.At, id, e.AdminID, e.AdminEmail, e.Action,
		e.Resource, e.ResourceID, e.IP, e.UserAgent, e.Success,
	).WithContext(ctx).Exec()
}

// Recent remonte jour par jour jusqu'à maxDays
func (s *Scylla) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries := make([]models.AuditEntry, 0, limit)
	day := time.Now().UTC()
	for i := 0; i < s.maxDays && len(entries) < limit; i++ {
		iter := s.session.Query(`
			SELECT id, at, admin_id, admin_email, action, resource, resource_id, ip, user_agent, success
			FROM audit_log WHERE day = ? LIMIT ?`,
			dayKey(day), limit-len(entries),
		).WithContext(ctx).Iter()

		var (
			id gocql.UUID
			e  models.AuditEntry
		)
		for iter.Scan(&id, &e.At, &e.AdminID, &e.AdminEmail, &e.Action, &e.Resource,
			&e.ResourceID, &e.IP, &e.UserAgent, &e.Success) {
			e.ID = id.String()
			entries = append(entries, e)
		}
		if err := iter.Close(); err != nil {
			return nil, err
		}
		day = day.AddDate(0, 0, -1)
	}
	return entries, nil
}
