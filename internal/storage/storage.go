package storage

import (
	"context"
	"errors"
	"fmt"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
// 每个组件都是可选的，未配置或连接失败时为 nil，调用方据此降级
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 按配置初始化各存储组件，单个组件失败只记录告警
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	l := logger.Logger.With().Str("component", "storage").Logger()

	s := &Storage{}
	var initErrs []error
	var err error

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO)
		if err != nil {
			initErrs = append(initErrs, fmt.Errorf("MinIO: %w", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			initErrs = append(initErrs, fmt.Errorf("RabbitMQ: %w", err))
		} else if err := s.RabbitMQ.EnsureProfileTopology(&cfg.RabbitMQ); err != nil {
			initErrs = append(initErrs, fmt.Errorf("RabbitMQ拓扑: %w", err))
		}
	}

	if cfg.MySQL.Host != "" {
		s.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			initErrs = append(initErrs, fmt.Errorf("MySQL: %w", err))
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			initErrs = append(initErrs, fmt.Errorf("Redis: %w", err))
		}
	}

	if len(initErrs) > 0 {
		l.Warn().Err(errors.Join(initErrs...)).Msg("部分存储组件初始化失败，相关功能将降级")
	}
	l.Info().
		Bool("minio", s.MinIO != nil).
		Bool("rabbitmq", s.RabbitMQ != nil).
		Bool("mysql", s.MySQL != nil).
		Bool("redis", s.Redis != nil).
		Msg("存储组件初始化完成")
	return s, nil
}

// Persistent 是否具备持久化能力（MySQL 可用）
func (s *Storage) Persistent() bool {
	return s != nil && s.MySQL != nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s == nil {
		return
	}
	l := logger.Logger.With().Str("component", "storage").Logger()
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			l.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			l.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			l.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
