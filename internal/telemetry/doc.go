// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 Generable 提供集中式的 TracerProvider 配置，并通过 OTLP gRPC 导出解析与流式快照的链路。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
