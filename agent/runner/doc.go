/*
Package runner 提供代码块执行钩子。

CodeBlockExecution 在可见历史中查找指定语言的最近一个代码块，
交给 CodeExecutor 执行并把输出作为回复发布；找不到代码块时交给下一阶段。
执行失败的输出以 "Error: ..." 文本返回，供 coder 修正。

CommandExecutor 通过本地解释器执行代码，不提供任何隔离，仅用于演示程序。
*/
package runner
