package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pkoziol/twistdeck/internal/cache"
	"github.com/pkoziol/twistdeck/internal/handlers"
	"github.com/pkoziol/twistdeck/internal/middleware"
	"github.com/pkoziol/twistdeck/internal/room"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		// The action log is an audit trail; the game runs fine without it.
		logger.Warnf("Redis unavailable, action logging disabled: %v", err)
		cache.Rdb = nil
	}

	srv := handlers.NewServer(logger, roomDefaultsFromEnv())

	mux := http.NewServeMux()

	wrap := middleware.LogMiddleware(logger)
	mux.Handle("/room/create", wrap(http.HandlerFunc(srv.CreateRoomHandler)))
	mux.Handle("/rooms", wrap(http.HandlerFunc(srv.ListRoomsHandler)))
	mux.Handle("/room/state", wrap(http.HandlerFunc(srv.StateHandler)))
	mux.Handle("/room/init", wrap(http.HandlerFunc(srv.InitHandler)))
	mux.Handle("/room/draw", wrap(http.HandlerFunc(srv.DrawHandler)))
	mux.Handle("/room/discard", wrap(http.HandlerFunc(srv.DiscardHandler)))
	mux.Handle("/room/twist", wrap(http.HandlerFunc(srv.TwistHandler)))
	mux.Handle("/room/card", wrap(http.HandlerFunc(srv.CardHandler)))
	mux.Handle("/room/ws", wrap(http.HandlerFunc(srv.RoomWSHandler)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

// roomDefaultsFromEnv builds the configuration new rooms start with.
func roomDefaultsFromEnv() room.Config {
	cfg := room.DefaultConfig()
	if v := os.Getenv("ROLES"); v != "" {
		var roles []room.Role
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				roles = append(roles, room.Role(part))
			}
		}
		if len(roles) >= 2 {
			cfg.Roles = roles
			cfg.Host = roles[0]
		}
	}
	if v := os.Getenv("HOST_ROLE"); v != "" {
		cfg.Host = room.Role(v)
	}
	if v := os.Getenv("TWIST_TOPOLOGY"); v == string(room.TopologyPerRole) {
		cfg.Topology = room.TopologyPerRole
	}
	if v := os.Getenv("HAND_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HandSize = n
		}
	}
	if v := os.Getenv("SEED"); v != "" {
		cfg.Seed = v
	}
	if v := os.Getenv("CARDS_DIR"); v != "" {
		cfg.CardsDir = v
	}
	if v := os.Getenv("TWIST_DIR"); v != "" {
		cfg.TwistDir = v
	}
	return cfg
}
