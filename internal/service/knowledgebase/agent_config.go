package knowledgebase

// SchemaType 代理配置的知识库字段形态
// 远端服务在系统生命周期内演化过两种互不兼容的 schema，
// 部署时固定选择其一，不在运行时探测
type SchemaType string

const (
	// SchemaPromptScoped 嵌套在 prompt 下的文档描述符列表，追加语义
	SchemaPromptScoped SchemaType = "prompt_scoped"
	// SchemaFlatIDs 代理配置上的扁平ID列表，整体替换语义
	SchemaFlatIDs SchemaType = "flat_ids"
)

// DocumentRef 知识库文档引用
type DocumentRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	UsageMode string `json:"usage_mode"`
}

// AgentKnowledgeConfig 代理的知识库配置，read-modify-write 的单位
// raw 保留完整的 conversation_config，写回时不丢失未知字段
type AgentKnowledgeConfig struct {
	Schema    SchemaType
	Documents []DocumentRef // prompt_scoped 变体
	IDs       []string      // flat_ids 变体

	raw map[string]interface{}
}

// Merge 将新文档追加到 prompt_scoped 列表
// 幂等：已存在相同ID时列表保持不变，返回 false
func (c *AgentKnowledgeConfig) Merge(id, name string) bool {
	for _, doc := range c.Documents {
		if doc.ID == id {
			return false
		}
	}
	c.Documents = append(c.Documents, DocumentRef{
		ID:        id,
		Name:      name,
		Type:      "file",
		UsageMode: "prompt",
	})
	return true
}

// Replace 将 flat_ids 列表整体替换为新ID，返回被替换掉的旧ID
// 扁平形态不支持干净的选择性追加，旧文档在新文档挂载成功后删除
func (c *AgentKnowledgeConfig) Replace(id string) []string {
	var previous []string
	for _, old := range c.IDs {
		if old != id {
			previous = append(previous, old)
		}
	}
	c.IDs = []string{id}
	return previous
}

// ContainsDocument 判断配置中是否已引用指定文档
func (c *AgentKnowledgeConfig) ContainsDocument(id string) bool {
	switch c.Schema {
	case SchemaFlatIDs:
		for _, existing := range c.IDs {
			if existing == id {
				return true
			}
		}
	default:
		for _, doc := range c.Documents {
			if doc.ID == id {
				return true
			}
		}
	}
	return false
}
