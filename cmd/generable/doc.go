// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package main 提供 generable 调试工具与调试服务入口。

# 概述

cmd/generable 用于排查模型输出解析问题：对任意截断文本执行前缀解析、
根据 YAML/JSON 定义文件构建并序列化 Schema、按 Schema 校验完整输出，
以及把输入切分成分块模拟流式快照。serve 子命令把同样的能力以
HTTP 与 WebSocket 接口提供出去。程序支持 YAML 配置文件加载、
结构化日志（zap）、Prometheus 指标导出和 OTLP 链路追踪。

# 子命令

  - parse    — 解析（可能不完整的）文本并输出值与完整性
  - schema   — 构建定义文件中的 Schema，输出线格式、JSON Schema 或 token 数
  - validate — 解析并按 Schema 校验完整输出，违反约束时退出码为 1；--record 保存结果
  - stream   — 按固定字节数切分输入逐块输出快照；--checkpoint 写入 Redis，--ws 发往远端服务
  - serve    — 启动调试服务（中间件链、可选 Redis 检查点与数据库记录）
  - migrate  — 基于 golang-migrate 的数据库迁移
  - history  — 查询或清理校验记录
  - inspect  — 读取 Redis 中的流检查点并解析出部分值
  - health   — 检查运行中服务的健康状态
  - version  — 显示版本信息

# 退出码

  - 0：成功
  - 1：输出未通过校验或不完整
  - 2：命令行用法错误
  - 3：运行失败（配置、I/O、存储等）

# 中间件链

Recovery → RequestID → SecurityHeaders → RequestLogger → Metrics →
OTelTracing → CORS → 认证（API Key 或 JWT）→ 限流。限流器按认证主体
计数，未认证请求按客户端 IP 计数。

构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
