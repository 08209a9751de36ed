// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
包 image 定义图像生成 Provider 的请求构造策略与执行传输层。

# 概述

每个 Provider 只负责把 (prompt, style, size) 纯函数式地转换为一次
RequestPlan；真正的网络调用、响应解释（直接图片 URL、二进制图片、
JSON 中的图片字段）与图片加载校验统一由 Transport 完成。

# 核心类型

  - ProviderSpec：Name / Endpoint / Method / FormatRequest
  - RequestPlan：URL、方法、请求头、JSON 或 multipart 请求体、超时、
    响应解释方式
  - StyleProfile：风格到主/备模型的静态映射表
  - GenerationResult：图片定位符、结果类型、来源 Provider、降级标记
  - Transport：基于 resty 执行 RequestPlan
  - ImageLoader：对图片 URL 做真实加载校验（默认 10 秒超时）
  - BlobStore：二进制结果的内存存储，返回 blob: 定位符

# 内置 Provider

  - PollinationsProvider（GET，直接返回图片）
  - HuggingFaceProvider（POST JSON，返回二进制图片）
  - DeepAIProvider（POST multipart，返回含 output_url 的 JSON）
*/
package image
