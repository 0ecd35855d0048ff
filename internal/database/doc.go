// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package database 提供校验记录的持久化，基于 GORM，支持 PostgreSQL、
MySQL 与纯 Go 的 SQLite。

# 概述

validate 子命令与调试服务可以把每次校验的输入、完整性与违规列表
写入 validation_records 表，便于之后用 history 子命令回看模型输出
在哪些约束上失败。表结构由 internal/migration 的迁移文件维护，
测试与单机场景可使用 RecordStore.AutoMigrate。

# 核心类型

  - PoolManager：连接池管理，提供 Ping、统计、健康检查与带重试的事务。
  - Open：按 config.DatabaseConfig 选择方言并创建 PoolManager。
  - ValidationRecord：一次校验的记录。
  - RecordStore：Save / Get / List / Purge。
*/
package database
