// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vgrigalashvili/entrance-simulator/internal/config"
	"github.com/vgrigalashvili/entrance-simulator/internal/connection"
	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/lifecycle"
	"github.com/vgrigalashvili/entrance-simulator/internal/logger"
	"github.com/vgrigalashvili/entrance-simulator/internal/mqtt"
	"github.com/vgrigalashvili/entrance-simulator/internal/rabbitmq"
	"github.com/vgrigalashvili/entrance-simulator/internal/reading"
	redisutil "github.com/vgrigalashvili/entrance-simulator/internal/redis"
	"github.com/vgrigalashvili/entrance-simulator/internal/scheduler"
	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

func main() {
	log := logger.New("info")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		var ce *connection.ConnectError
		if errors.As(err, &ce) {
			log.Fatal().Err(err).Int("attempts", ce.Attempts).Msg("Failed to connect to broker. Exiting.")
		}
		log.Fatal().Err(err).Msg("Simulator stopped with error")
	}
	log.Info().Msg("Simulator stopped")
}

// run wires the simulator and blocks until ctx is cancelled or the broker
// cannot be reached. Every resource is released before it returns.
func run(ctx context.Context, cfg config.Config, base zerolog.Logger) error {
	runID := uuid.NewString()
	log := base.With().Str("run_id", runID).Logger()

	fleet, err := sensor.LoadFleet(cfg.SensorsFile)
	if err != nil {
		return err
	}

	transport := newTransport(cfg)
	schedOpts := scheduler.DefaultOptions(cfg.MQTT.TopicBase)

	log.Info().
		Int("sensors", len(fleet)).
		Str("transport", cfg.Transport).
		Str("broker", transport.Address()).
		Str("topic_base", cfg.MQTT.TopicBase).
		Bool("auth", cfg.MQTT.HasCredentials()).
		Msg("Entrance sensor simulator starting")

	sinks := event.Multi{logger.NewEventLogger(log)}

	if cfg.RedisAddr != "" {
		rdb := redisutil.Init(cfg.RedisAddr)
		defer rdb.Close()

		period := schedOpts.CycleDelay + time.Duration(len(fleet))*schedOpts.SensorDelay
		hb := redisutil.NewHeartbeat(rdb, cfg.MQTT.ClientID, runID, 3*period)
		go hb.Run()
		defer hb.Close()

		sinks = append(sinks, hb)
		log.Info().Str("key", redisutil.StatusKey(cfg.MQTT.ClientID)).Msg("Heartbeat enabled")
	}

	mgr := connection.New(transport, connection.DefaultOptions(), sinks)
	sched := scheduler.New(mgr, reading.NewGenerator(nil), schedOpts, sinks)

	return lifecycle.New(mgr, sched, fleet, sinks).Run(ctx)
}

func newTransport(cfg config.Config) connection.Transport {
	if cfg.Transport == config.TransportAMQP {
		return rabbitmq.New(amqpConfig(cfg))
	}
	return mqtt.New(mqtt.Config{
		Host:     cfg.MQTT.Broker,
		Port:     cfg.MQTT.Port,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.User,
		Password: cfg.MQTT.Password,
	})
}

// amqpConfig maps settings onto the RabbitMQ transport. MQTT credentials
// are never reused; without AMQP_USER/AMQP_PASSWORD the URL's own apply.
func amqpConfig(cfg config.Config) rabbitmq.Config {
	return rabbitmq.Config{
		URL:      cfg.AMQP.URL,
		Exchange: cfg.AMQP.Exchange,
		Username: cfg.AMQP.User,
		Password: cfg.AMQP.Password,
	}
}
