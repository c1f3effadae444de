// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package classifier 将任务文本映射为类别命中画像与结构特征。
//
// 每个类别由名称和一组大小写不敏感的触发子串组成，命中数即文本中出现的
// 不同触发子串个数。结果的类别顺序与定义顺序一致，空文本返回全零结果。
package classifier
