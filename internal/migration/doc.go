// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package migration 管理校验记录表的数据库迁移，基于 golang-migrate，
支持 PostgreSQL、MySQL 与 SQLite。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌在二进制中。SQLite 使用纯 Go
的 glebarez/go-sqlite 连接，交给 golang-migrate 的 sqlite3 驱动执行，
因此无需 CGO。迁移进度日志通过 zap 输出。

# 核心类型

  - Migrator：Up/Down/DownAll/Steps/Goto/Force/Version/Status/Info/Close
  - DefaultMigrator：golang-migrate 实现
  - CLI：面向终端的格式化输出，供 generable migrate 子命令使用
  - NewMigratorFromConfig：从 config.DatabaseConfig 创建迁移器
*/
package migration
