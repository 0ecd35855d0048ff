// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 structured 把 Go 类型与模型输出连接起来：从结构体字段推导 Schema 描述，
把解析出的 content.Value 转换为类型化的值，并在流式响应过程中给出
逐步完善的部分结果。

# 核心接口

  - Enumerable — 具名字符串类型声明封闭取值集合，推导为枚举
  - Generable — 类型自行提供 *schema.Descriptor，跳过反射推导

# 主要类型

  - Generator — 通过反射从 Go 类型生成 Descriptor，支持 jsonschema 标签
  - Registry — 以稳定类型名为键的 Descriptor 注册表，并发安全
  - Partial[T] — 容错的部分结果，逐字段独立转换，Final 投影为完整值
  - Output[T] — 类型化输出处理器：Parse、Snapshot、Stream
  - ParseResult[T] / FieldError — 解析结果与首个失败字段

# 典型用法

	type Person struct {
		Name  string  `json:"name"`
		Age   int     `json:"age" jsonschema:"minimum=0,maximum=120"`
		Email *string `json:"email,omitempty" jsonschema:"format=email"`
	}

	out, _ := structured.NewOutput[Person]()
	p, err := out.Parse(ctx, reply)

	// 流式
	for snap := range out.Stream(ctx, chunks) {
		if snap.Has("name") { render(snap.Value.Name) }
	}

# 主要能力

  - Schema 推导：字段顺序即属性顺序，指针与 omitempty 字段为可选
  - 严格解码：Decode[T] 报告第一个缺失或无法转换的字段
  - 编码：Encode 按声明顺序生成结构化值
  - 部分结果：DecodePartial[T] 与 Output.Stream，按到达顺序累积文本
  - 可观测性：zap 日志、OpenTelemetry span、Prometheus 指标
*/
package structured
