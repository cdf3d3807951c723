package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 通过真实的json.Unmarshal产生输入，保证测试覆盖的是实际的解码后类型
func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestSafeStringCoercion(t *testing.T) {
	m := decode(t, `{
		"name": "张三",
		"blank": "  ",
		"missing_value": null,
		"age": 28,
		"score": 3.5,
		"flag": true,
		"aliases": ["", "  ", "John Zhang", "JZ"]
	}`)

	assert.Equal(t, "张三", SafeString(m, "name", "def"))
	// 空白串视为缺失
	assert.Equal(t, "def", SafeString(m, "blank", "def"))
	assert.Equal(t, "def", SafeString(m, "missing_value", "def"))
	assert.Equal(t, "def", SafeString(m, "no_such_key", "def"))
	// 数字和布尔值字符串化
	assert.Equal(t, "28", SafeString(m, "age", ""))
	assert.Equal(t, "3.5", SafeString(m, "score", ""))
	assert.Equal(t, "true", SafeString(m, "flag", ""))
	// 列表取第一个非空元素
	assert.Equal(t, "John Zhang", SafeString(m, "aliases", ""))

	// nil map 不panic
	assert.Equal(t, "def", SafeString(nil, "k", "def"))
}

func TestSafeStringList(t *testing.T) {
	m := decode(t, `{
		"skills": ["Go", "", "  ", "MySQL", 3],
		"single": "Kubernetes",
		"empty": [],
		"nothing": null
	}`)

	assert.Equal(t, []string{"Go", "MySQL", "3"}, SafeStringList(m, "skills"))
	// 裸标量包装为单元素切片
	assert.Equal(t, []string{"Kubernetes"}, SafeStringList(m, "single"))
	assert.Nil(t, SafeStringList(m, "empty"))
	assert.Nil(t, SafeStringList(m, "nothing"))
	assert.Nil(t, SafeStringList(m, "no_such_key"))
}

func TestSafeFloat(t *testing.T) {
	m := decode(t, `{
		"years": 5.5,
		"count": 3,
		"text_number": " 7.25 ",
		"garbage": "five",
		"nothing": null
	}`)

	assert.Equal(t, 5.5, SafeFloat(m, "years", 0))
	assert.Equal(t, 3.0, SafeFloat(m, "count", 0))
	assert.Equal(t, 7.25, SafeFloat(m, "text_number", 0))
	assert.Equal(t, -1.0, SafeFloat(m, "garbage", -1))
	assert.Equal(t, -1.0, SafeFloat(m, "nothing", -1))
}

// 多地址字符串中第一个形如邮箱的token胜出
func TestFirstEmailMultipleAddresses(t *testing.T) {
	m := decode(t, `{"email": "not-an-email, zhang.san@example.com; backup@foo.org"}`)
	assert.Equal(t, "zhang.san@example.com", FirstEmail(m, "email"))
}

func TestFirstEmailNormalization(t *testing.T) {
	m := decode(t, `{"email": "  Zhang.SAN@Example.COM  "}`)
	assert.Equal(t, "zhang.san@example.com", FirstEmail(m, "email"))
}

func TestFirstEmailNoValidAddress(t *testing.T) {
	m := decode(t, `{"email": "微信: zhangsan123", "empty": ""}`)
	assert.Equal(t, "", FirstEmail(m, "email"))
	assert.Equal(t, "", FirstEmail(m, "empty"))
	assert.Equal(t, "", FirstEmail(m, "no_such_key"))
}

// 邮箱字段本身也可能是列表
func TestFirstEmailFromList(t *testing.T) {
	m := decode(t, `{"email": ["zhang@example.com", "li@example.com"]}`)
	assert.Equal(t, "zhang@example.com", FirstEmail(m, "email"))
}
