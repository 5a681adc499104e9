package classify

import "github.com/Veraticus/bean-flow/internal/rules"

// DefaultAccount receives transactions that no rule claims.
const DefaultAccount = "Expenses:Uncategorized"

// CreditCards maps a repayment payee to its liability account.
var CreditCards = map[string]string{
	"中信银行": "Liabilities:CreditCard:CITIC",
}

// Tables holds the raw rule tables, in precedence order.
type Tables struct {
	Payees       []rules.Rule
	Descriptions []rules.Rule
	Fallbacks    []rules.Rule
	Incomes      []rules.Rule
}

// Prepend returns a copy of t with extra's rules placed ahead of t's in
// each table.
func (t Tables) Prepend(extra Tables) Tables {
	join := func(a, b []rules.Rule) []rules.Rule {
		out := make([]rules.Rule, 0, len(a)+len(b))
		return append(append(out, a...), b...)
	}
	return Tables{
		Payees:       join(extra.Payees, t.Payees),
		Descriptions: join(extra.Descriptions, t.Descriptions),
		Fallbacks:    join(extra.Fallbacks, t.Fallbacks),
		Incomes:      join(extra.Incomes, t.Incomes),
	}
}

// DefaultTables returns the built-in rule tables.
func DefaultTables() Tables {
	reg := Resolvers()
	dining := reg[ResolverDining]
	card := reg[ResolverCreditCard]

	return Tables{
		Payees: []rules.Rule{
			rules.Static("余额宝", "Assets:Company:Alipay:MonetaryFund"),
			rules.Static("余利宝", "Assets:Bank:MyBank"),
			rules.Static("花呗", "Liabilities:Company:Huabei"),
			rules.Static("建设银行", "Liabilities:CreditCard:CCB"),
			rules.Static("零钱", "Assets:Balances:WeChat"),
		},
		Descriptions: []rules.Rule{
			rules.Static(`余额宝.*收益发放`, "Assets:Company:Alipay:MonetaryFund"),
			rules.Static(`转入到余利宝`, "Assets:Bank:MyBank"),
			rules.Static(`花呗收钱服务费`, "Expenses:Fee"),
			rules.Static(`自动还款-花呗.*账单`, "Liabilities:Company:Huabei"),
			rules.Dynamic(`信用卡自动还款|信用卡还款`, card),
			rules.Dynamic(`外卖订单`, dining),
			rules.Dynamic(`美团订单`, dining),
		},
		Fallbacks: []rules.Rule{
			rules.Dynamic(`.*上海拉扎斯.*`, dining),
			rules.Static(`.*伏沄.*|便电通.*|友宝|.*友宝昂莱.*`, "Expenses:Dining:Drink"),
			rules.Static(`北京一卡通`, "Expenses:Traffic:Bus"),
			rules.Static(`怂柠.*|茶话弄.*|沪上阿姨.*|吴裕泰.*|CoCo都可.*|星巴克.*|喜茶.*|蜜雪冰城.*`, "Expenses:Dining:Drink"),
			rules.Static(`北京中燃天天然气`, "Expenses:Dining:Diet"),
			rules.Static(`觀盛楼.*|.*汉堡王.*|.*肯德基.*|金拱门.*|鲜芋仙.*`, "Expenses:Dining:Diet"),
			rules.Static(`.*麦当劳.*|.*西少爷.*|.*吉野家.*|.*宏状元.*|连姐肉饼.*|老街围炉麻辣烫.*`, "Expenses:Dining:Diet"),
			rules.Static(`.*火锅鸡.*|高兴火锅.*|友仁居.*`, "Expenses:Dining:Feast"),
			rules.Static(`欧尚.*|.*便利蜂.*|.*欧尚.*|.*鲜市吉.*|柒一拾壹.*|.*盒马.*|.*超市|好德百汇.*|上嘉超市.*|北京维果蔬农副产品.*|超市发.*|鲜又多果蔬连锁超市.*|生活便利超市.*|都市优选.*|快客.*`, "Expenses:Groceries"),
			rules.Static(`.*博众云.*|.*哈啰.*|安心充.*|.*车充安.*|.*全来电.*|小绿人充电|上海哈啰.*`, "Expenses:Traffic:Bike"),
			rules.Static(`.*话费充值.*`, "Expenses:Utilities:CellPhone"),
			rules.Static(`铁道部.*|中铁网络.*|.*12306.*`, "Expenses:Traffic:Train"),
			rules.Static(`北京自来水`, "Expenses:Utilities:Water"),
			rules.Static(`网上国网|北京电力|沧州供电公司`, "Expenses:Utilities:Electricity"),
			rules.Static(`.*顺丰.*`, "Expenses:Utilities:Express"),
			rules.Static(`滴滴出行|滴滴出租车|滴滴打车|滴滴快车`, "Expenses:Traffic:Taxi"),
			rules.Static(`.*迪卡侬.*|.*优衣库.*`, "Expenses:Clothing"),
			rules.Static(`.*华住*`, "Expenses:Hotel"),
		},
		Incomes: []rules.Rule{
			rules.Static(`余额宝.*收益发放`, "Income:Trade:PnL"),
		},
	}
}
