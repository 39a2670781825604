package textkr

// builtinNouns is the domain lexicon for segmentation. It leans heavily on
// insurance and medical vocabulary because that is what policy queries are
// made of; general nouns cover the connective tissue of questions.
var builtinNouns = []string{
	// Insurance contract terms
	"보험", "보험금", "보험료", "보험사", "보험계약", "약관", "특약", "주계약",
	"계약", "계약자", "피보험자", "수익자", "가입", "해지", "해약", "청약", "철회",
	"갱신", "납입", "환급", "환급금", "해약환급금", "위로금", "청구", "지급",
	"지급일", "지급액", "지급률", "면책", "면책기간", "감액", "삭감", "보장",
	"보장개시", "보장개시일", "보장금액", "가입금액", "만기", "만기환급금",
	"효력", "상실", "부활", "고지", "고지의무", "통지", "담보", "한도", "공제",
	// Medical terms
	"진단", "진단비", "진단서", "진단확정", "수술", "수술비", "입원", "입원비",
	"입원일당", "통원", "치료", "치료비", "요양", "간병", "간병인",
	"암", "유사암", "소액암", "갑상선암", "전이암", "원발암", "기타피부암",
	"악성", "신생물", "악성신생물", "종양", "경계성", "경계성종양", "제자리",
	"제자리암", "상피내암", "백혈병", "림프종",
	"뇌졸중", "뇌출혈", "뇌경색", "심근경색", "협심증", "심장", "혈관", "질환",
	"질병", "상해", "재해", "사고", "후유", "장해", "장해율", "사망", "사망보험금",
	"갑상선", "전립선", "유방", "자궁", "대장", "위암", "간암", "폐암",
	"수술급여금", "급여", "비급여", "병원", "의사", "의료", "검사", "판정",
	"임신", "출산", "제왕절개",
	// Document structure
	"조항", "조문", "항목", "별표", "부칙", "서류", "증권", "증서", "약정",
	// General query nouns
	"내용", "방법", "절차", "조건", "기준", "사유", "대상", "범위", "금액",
	"비용", "일자", "날짜", "기간", "횟수", "나이", "연령", "종류", "차이",
	"의미", "정의", "설명", "예시", "문서", "파일", "목록", "확인", "문의",
	"질문", "검색", "관리", "삭제", "다운로드", "조회", "업로드", "등록", "추가",
}

// boundNouns carry little meaning on their own; they participate in
// segmentation but are dropped by the stop-word filter.
var boundNouns = []string{"것", "수", "때", "데", "뿐", "듯", "바", "지", "채"}

// nounSuffixes derive nouns and extend compounds (진단 + 비 → 진단비).
var nounSuffixes = []string{"비", "료", "금", "성", "율", "률", "액", "권", "서", "일", "자"}

// singleCharAllow lists single-character nouns kept despite the length
// filter: organ and disease atoms that are real search terms on their own.
var singleCharAllow = map[string]bool{
	"암": true, "간": true, "폐": true, "뇌": true, "위": true,
	"눈": true, "귀": true, "코": true, "목": true, "턱": true,
}

// stopwords are question words and weightless bound nouns, dropped from
// keyword lists.
var stopwords = map[string]bool{
	"어떻게": true, "어디": true, "언제": true, "누구": true, "무엇": true,
	"왜": true, "어느": true, "얼마": true, "어떤": true, "무슨": true,
	"얼마나": true,
	"것":   true, "수": true, "때": true, "데": true, "뿐": true,
	"듯": true, "바": true, "지": true, "채": true,
}
