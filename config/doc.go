// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

// Package config 提供 Generable 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，环境变量前缀默认为
// GENERABLE，嵌套字段以下划线连接，例如 GENERABLE_PARSER_MAX_DEPTH。
package config
