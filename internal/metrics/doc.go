// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的解析与校验指标采集能力。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
注册机制，默认注册到全局 Registry，也可以通过 WithRegisterer
注入独立的 Registry（测试中常用）。所有指标按 namespace 隔离。
nil *Collector 上的所有记录方法都是空操作，调用方无需判空。

# 核心类型

  - Collector：指标收集器，持有 Counter 与 Histogram 向量指标。

# 主要能力

  - 解析指标：parses_total{outcome}、parse_bytes、
    parse_duration_seconds{outcome}，outcome 为 complete/partial/error。
  - 转换指标：coercion_failures_total{type}。
  - 校验指标：constraint_violations_total{constraint}，
    constraint 取约束名称（如 range、pattern、required）。
  - 流式指标：snapshots_total。
*/
package metrics
