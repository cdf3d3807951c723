package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEnvelopeFromFencedBlock(t *testing.T) {
	response := "以下是提取结果：\n```json\n{\"basic_info\": {\"name\": \"李四\"}}\n```\n希望对你有帮助。"

	envelope, err := ExtractEnvelope(response)
	require.NoError(t, err)

	basic := ObjectField(envelope, "basic_info")
	require.NotNil(t, basic)
	assert.Equal(t, "李四", basic["name"])
}

func TestExtractEnvelopeBraceFallback(t *testing.T) {
	// 没有围栏，JSON嵌在说明文字中间，内部还有嵌套对象
	response := `Sure, here is the data: {"basic_info": {"name": "Alice"}, "skills": ["Go"]} done.`

	envelope, err := ExtractEnvelope(response)
	require.NoError(t, err)
	assert.Equal(t, "Alice", ObjectField(envelope, "basic_info")["name"])
}

func TestExtractEnvelopeGarbage(t *testing.T) {
	_, err := ExtractEnvelope("抱歉，我无法处理这份简历。")
	assert.Error(t, err)

	// 有大括号但不是合法JSON
	_, err = ExtractEnvelope(`{"name": broken}`)
	assert.Error(t, err)
}

func TestObjectList(t *testing.T) {
	m := decode(t, `{
		"work_experiences": [
			{"company": "A"},
			"不是对象的元素",
			{"company": "B"}
		],
		"single": {"company": "C"},
		"nothing": null
	}`)

	list := ObjectList(m, "work_experiences")
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0]["company"])
	assert.Equal(t, "B", list[1]["company"])

	// 单个对象包装为单元素列表
	single := ObjectList(m, "single")
	require.Len(t, single, 1)
	assert.Equal(t, "C", single[0]["company"])

	assert.Nil(t, ObjectList(m, "nothing"))
	assert.Nil(t, ObjectList(m, "no_such_key"))
}
