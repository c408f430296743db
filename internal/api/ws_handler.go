package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/api/middleware"
	"jobboard/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// Subscriber 是订阅用户通知频道所需的 Redis 能力。
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 把投递通知从 Redis 频道转发到浏览器。
type WsHandler struct {
	subscriber  Subscriber
	validator   middleware.TokenValidator
	revocations middleware.RevocationChecker
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只允许同源。
func NewWsHandler(subscriber Subscriber, validator middleware.TokenValidator, revocations middleware.RevocationChecker, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		subscriber:  subscriber,
		validator:   validator,
		revocations: revocations,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, allowedOrigins)
			},
		},
	}
}

func originAllowed(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接。浏览器带 Cookie 时直接鉴权，否则等待首条 {type:"auth"} 消息。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	cookieToken := middleware.TokenFromRequest(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	token := cookieToken
	if token == "" {
		token, err = readAuthToken(conn)
		if err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, "auth required")
			log.Warn("websocket authentication failed", slog.Any("error", err))
			return
		}
	}

	userID, err := h.authorize(ctx, token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}

	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	// 读循环只用于感知客户端断开。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.forward(ctx, conn, tasks.UserChannel(userID), log); err != nil && !errors.Is(err, context.Canceled) {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

func readAuthToken(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read auth message: %w", err)
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return "", fmt.Errorf("decode auth message: %w", err)
	}
	if msg.Type != "auth" || strings.TrimSpace(msg.Token) == "" {
		return "", errors.New("invalid auth message")
	}
	return msg.Token, nil
}

func (h *WsHandler) authorize(ctx context.Context, token string) (uint, error) {
	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if h.revocations != nil && claims.ID != "" {
		revoked, err := h.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return 0, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return 0, errors.New("token revoked")
		}
	}
	return claims.UserID, nil
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, channel string, log *slog.Logger) error {
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
