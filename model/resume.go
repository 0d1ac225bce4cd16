package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringList 既可以写成单个字符串，也可以写成字符串数组
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("需要字符串或字符串数组: %w", err)
	}
	*l = many
	return nil
}

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	return fmt.Errorf("第%d行: 需要字符串或字符串数组", value.Line)
}

// FieldKind 字段的填写方式
type FieldKind string

const (
	FieldInput    FieldKind = "input"
	FieldDropdown FieldKind = "dropdown"
)

// FieldSpec 一个逻辑字段：依次尝试的标签文字，以及一个值或按顺序填入相邻输入框的多个值
type FieldSpec struct {
	Labels   StringList `json:"labelTexts" yaml:"labelTexts"`
	Values   StringList `json:"value" yaml:"value"`
	Optional bool       `json:"optional,omitempty" yaml:"optional,omitempty"`
	Kind     FieldKind  `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Composite 多个值分别填入相邻输入框，例如 年/月
func (f FieldSpec) Composite() bool {
	return len(f.Values) > 1
}

// Section 简历中的一个模块，或模块下的一条记录
type Section struct {
	TitleLabels         StringList  `json:"titleLabels" yaml:"titleLabels"`
	AddButtonLabels     StringList  `json:"addButtonLabels,omitempty" yaml:"addButtonLabels,omitempty"`
	FirstFormFieldLabel string      `json:"firstFormFieldLabel,omitempty" yaml:"firstFormFieldLabel,omitempty"`
	Fields              []FieldSpec `json:"fields" yaml:"fields"`
}

// NeedsAdd 记录需要先点击“添加”才会出现表单
func (s Section) NeedsAdd() bool {
	return len(s.AddButtonLabels) > 0
}

// Resume 简历数据文件
type Resume struct {
	PersonalInfo          *Section  `json:"personalInfo,omitempty" yaml:"personalInfo,omitempty"`
	ProjectExperiences    []Section `json:"projectExperiences,omitempty" yaml:"projectExperiences,omitempty"`
	InternshipExperiences []Section `json:"internshipExperiences,omitempty" yaml:"internshipExperiences,omitempty"`
}
