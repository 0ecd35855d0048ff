// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package testutil 提供 generable 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
分块输入、前缀解析与异步等待等测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 流式辅助: Chunks / Prefixes / Feed / Collect，把完整文本切成
    模型输出式的分块并驱动 structured.Output.Stream
  - 值辅助: MustParse / AssertValueJSON，解析并比较 content.Value
  - 异步断言: AssertEventuallyTrue / WaitForChannel

# 子包

  - testutil/mocks: MockRecordStore 与 MockStreamStore，满足
    api/handlers 的存储接口，支持错误注入与调用计数
  - testutil/fixtures: 预置 Person / Mood 描述符、定义文件与样例输出

# 使用示例

	ctx := testutil.TestContext(t)
	in := testutil.Feed(ctx, testutil.Chunks(fixtures.PersonJSON, 4))
	snaps := testutil.Collect(out.Stream(ctx, in))
*/
package testutil
