// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package api 定义 generable 调试服务的 HTTP 与 WebSocket 请求/响应类型。

# 概述

调试服务把结构化输出的能力暴露给不使用 Go 的调用方：解析模型文本、
按已注册的 schema 校验、查询 schema 及其 JSON Schema 形式，以及通过
WebSocket 逐块推送文本并实时接收部分值快照。处理器实现位于
api/handlers 子包，本包只包含线上传输的数据结构。

# 端点

  - POST /v1/parse                     解析（可能不完整的）JSON 文本
  - POST /v1/validate                  按命名 schema 解析并校验
  - GET  /v1/schemas                   列出已注册 schema
  - GET  /v1/schemas/{name}            schema 线格式
  - GET  /v1/schemas/{name}/jsonschema draft 2020-12 JSON Schema
  - GET  /v1/schemas/{name}/tokens     schema 提示词的 token 数
  - GET  /v1/records                   查询校验记录
  - GET  /v1/records/{id}              单条校验记录
  - GET  /v1/streams/{id}              读取 Redis 中的流检查点
  - GET  /v1/stream/{schema}           WebSocket 流式快照

# 认证

除健康检查外的端点可以通过 X-API-Key 或 Bearer JWT 认证，
由 cmd/generable 的中间件链负责。
*/
package api
