package generator

import (
	"fmt"
	"strings"

	"otherlife/internal/game"
)

// systemPrompt is the fixed narrator instruction sent on every turn. It pins
// the reply to the structured JSON shape the normalizer expects and spells
// out the ability-unlock policy the engine re-checks mechanically.
const systemPrompt = `你是一个人生模拟游戏的AI助手，负责根据用户的当前游戏状态和选择，创造沉浸式的角色扮演体验。

你的任务是：
1. 作为旁白者描述当前场景和环境
2. 扮演场景中的不同角色（父母、朋友、老师、陌生人等）与玩家直接对话
3. 让玩家感觉自己真的在这个世界中生活和互动

故事风格要求：
- 每个阶段都要有dramatic的情节发展，加入突发事件：疾病、意外、特殊遭遇、家庭变故、奇遇等
- 时间跳跃要大胆：婴儿期一次几小时到几天，童年几周到几个月
- 让每个选择都有明显的后果和转折
- 70%现实主义故事，20%轻微奇幻，10%科幻魔幻

A/B选择要求：
- 两个选择应该截然不同，导向完全不同的人生路径
- 要有意外性和趣味性，但以现实中可能发生的情况为主

【重要】技能指令系统要求：
技能指令是玩家学会的特殊能力，能够显著改变剧情走向和环境。
1. 只有在极其特殊、戏剧性、能产生重大剧情转折的关键时刻才解锁技能
2. 如果需要解锁，检查已获得的技能列表，与现有技能重复或类似则不解锁
3. 只有通过以上两个判断才在skillCommand字段中返回新技能
可以作为技能的行为示例：/cry（大哭）、/lie（撒谎）、/rebel（反抗）、/charm（魅力）、
/intimidate（威胁）、/manipulate（操控）、/sacrifice（牺牲）、/deceive（欺骗）、/betray（背叛）。
吃饭、睡觉、走路、说话等日常行为不能作为技能。大部分对话都不应该解锁技能。

人格成长要求：
- 每次选择的人格变化要明显：单项变化3-8分，重大选择可以有10-15分的巨大变化

对话格式要求：message字段应包含场景描述+角色对话，按如下标记组织：
【场景】描述当前环境、氛围、人物状态
【角色名】："直接对话内容"
【旁白】补充说明、内心想法、环境变化

重要规则：
1. 【严格】只返回JSON，绝对不要在JSON前后添加任何文字、解释或重复内容
2. 基于提供的游戏状态信息生成连贯、dramatic的故事发展
3. duration字段必须是数字，表示推进的分钟数（婴儿期：60-1440分钟，童年：1440-10080分钟）

JSON格式要求：
{
  "message": "基于当前状态的生动故事描述",
  "birthInfo": {"date": "出生日期", "time": "出生时间", "location": "出生地点"},
  "currentTime": {"date": "当前日期", "time": "当前时间", "age": 当前年龄数字},
  "ocean": {
    "sensingOpenness": 更新后的感官开放度分数,
    "literalCommunication": 更新后的语言风格化分数,
    "emotionalSync": 更新后的情绪节奏感分数,
    "focusGravity": 更新后的聚焦强度分数,
    "socialFriction": 更新后的社交摩擦力分数
  },
  "choices": [
    {"id": "A", "text": "选择A", "consequence": "后果", "personalityChange": {"sensingOpenness": 变化值}},
    {"id": "B", "text": "选择B", "consequence": "后果", "personalityChange": {"socialFriction": 变化值}}
  ],
  "skillCommand": {"command": "/cry", "description": "技能描述和剧情影响说明"},
  "timeProgression": {"fromDate": "之前的日期", "fromTime": "之前的时间", "toDate": "推进后的日期", "toTime": "推进后的时间", "duration": 推进的分钟数}
}

请严格基于提供的游戏状态信息，生成连贯合理的人生故事！只返回JSON！`

// BuildMessages assembles the full transcript for one turn: the system
// prompt plus a current-state summary, the last `window` timeline entries as
// alternating user/assistant pairs, and the new user input.
func BuildMessages(state *game.PlayerState, userInput string, window int) []Message {
	messages := make([]Message, 0, 2+2*window)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: systemPrompt + "\n\n" + stateContext(state),
	})

	for _, entry := range state.RecentTimeline(window) {
		messages = append(messages,
			Message{Role: RoleUser, Content: entry.UserInput},
			Message{Role: RoleAssistant, Content: entry.Narrative},
		)
	}

	messages = append(messages, Message{Role: RoleUser, Content: userInput})
	return messages
}

// OptionInput synthesizes the user-input string for an A/B pick.
func OptionInput(opt game.Option) string {
	return fmt.Sprintf("选择%s: %s", opt.ID, opt.Label)
}

// stateContext renders the current state summary injected into the system
// message, including the full ability list the unlock policy is checked
// against.
func stateContext(state *game.PlayerState) string {
	var abilities string
	if len(state.Abilities) > 0 {
		lines := make([]string, len(state.Abilities))
		for i, a := range state.Abilities {
			lines[i] = fmt.Sprintf("%s - %s", a.Command, a.Description)
		}
		abilities = strings.Join(lines, "\n  ")
	} else {
		abilities = "无"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "当前游戏状态：\n")
	fmt.Fprintf(&b, "- 出生信息：%s %s 于 %s\n", state.BirthInfo.Date, state.BirthInfo.Time, state.BirthInfo.Location)
	fmt.Fprintf(&b, "- 当前时间：%s %s，年龄：%d岁\n", state.CurrentTime.Date, state.CurrentTime.Time, state.CurrentTime.Age.Int())
	fmt.Fprintf(&b, "- 当前人格特质：\n")
	fmt.Fprintf(&b, "  感官开放度: %d\n", state.Traits.SensingOpenness)
	fmt.Fprintf(&b, "  语言风格化: %d\n", state.Traits.LiteralCommunication)
	fmt.Fprintf(&b, "  情绪节奏感: %d\n", state.Traits.EmotionalSync)
	fmt.Fprintf(&b, "  聚焦强度: %d\n", state.Traits.FocusGravity)
	fmt.Fprintf(&b, "  社交摩擦力: %d\n", state.Traits.SocialFriction)
	fmt.Fprintf(&b, "- 已获得技能命令：\n  %s\n\n", abilities)
	b.WriteString("【技能解锁检查】：\n")
	b.WriteString("1. 判断当前情况是否达到解锁技能的标准（极其特殊、戏剧性、能产生重大剧情转折）\n")
	b.WriteString("2. 如果需要解锁，检查上述已获得技能列表，确保新技能不与现有技能重复或类似\n")
	b.WriteString("3. 只有通过以上两个判断才在skillCommand字段中返回新技能\n\n")
	b.WriteString("请基于以上状态信息，生成连贯的人生模拟对话。")
	return b.String()
}
