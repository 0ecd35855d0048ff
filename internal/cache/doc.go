// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package cache 提供基于 Redis 的流式检查点存储。

# 概述

模型输出以文本块的形式到达。StreamStore 将每个流已收到的文本
追加到 Redis 中，使另一个进程（例如 CLI 的 inspect 子命令或
调试服务）可以在流结束前读取当前前缀并解析出部分值。

# 核心类型

  - Manager：Redis 连接管理器，负责连接、Ping 与关闭，支持可选 TLS。
  - StreamStore：按流 ID 追加文本块、标记结束、读取与删除检查点。
  - Checkpoint：某一时刻的流状态，包括已收文本、块数与是否结束。

# 错误语义

  - ErrStreamNotFound：流不存在或已过期（NOT_FOUND）。
  - ErrStreamFinished：向已结束的流追加文本（CONFLICT）。
*/
package cache
