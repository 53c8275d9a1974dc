// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package conf

import "github.com/sirupsen/logrus"

// LoggerConfig 定义日志配置
//
// 日志轮转策略：
//   - 当单个文件大小超过 MaxSize MB 时，自动切分到新文件
//   - 超过 MaxBackups 数量或 MaxAge 天数的旧文件会被自动删除
type LoggerConfig struct {
	// LogFile 日志文件名 (留空则只输出到控制台)
	LogFile string `json:"name" yaml:"name"`

	// Level 日志级别: trace, debug, info, warn, error, fatal
	Level string `json:"level" yaml:"level"`

	// MaxSize 单个日志文件最大大小 (MB)
	MaxSize int `json:"max_size" yaml:"max_size"`

	// MaxBackups 保留的旧日志文件数量
	MaxBackups int `json:"max_count" yaml:"max_count"`

	// MaxAge 日志文件保留天数
	MaxAge int `json:"max_day" yaml:"max_day"`

	// Compress 是否压缩旧日志文件
	Compress bool `json:"compress" yaml:"compress"`

	// Console 写文件时是否同时输出到控制台
	Console bool `json:"console" yaml:"console"`

	// JSONFormat 文件输出是否使用 JSON 格式
	JSONFormat bool `json:"json_format" yaml:"json_format"`
}

// DefaultLoggerConfig returns the development defaults.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      "info",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		Console:    true,
	}
}

// Validate normalizes invalid fields to their defaults.
func (c *LoggerConfig) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		c.Level = "info"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 10
	}
	if c.MaxBackups < 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge < 0 {
		c.MaxAge = 7
	}
	return nil
}
