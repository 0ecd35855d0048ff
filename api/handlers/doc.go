// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package handlers 提供 generable 调试服务的 HTTP 与 WebSocket 处理器。

# 概述

handlers 包实现调试服务所有端点的请求处理逻辑：解析、按 schema 校验、
schema 查询与 token 统计、校验记录查询、流检查点读取以及 WebSocket
流式快照。所有 Handler 均遵循标准 net/http 接口，路由使用 Go 1.22 的
方法与路径通配模式注册。

# 核心类型

  - ParseHandler     — 无 schema 的部分 JSON 解析
  - ValidateHandler  — 按命名 schema 解析、校验，可选保存校验记录
  - SchemaHandler    — schema 列表、线格式、JSON Schema 与 token 统计
  - RecordHandler    — 校验记录查询
  - StreamHandler    — WebSocket 流式快照与 Redis 检查点读取
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message 与 details

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（大小限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 依赖以接口注入：SchemaSource、RecordStore、StreamStore，均可为空
  - 可扩展健康检查：RegisterCheck 注册 PingCheck（数据库、Redis）
*/
package handlers
