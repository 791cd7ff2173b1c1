package bot

import (
	"maps"
	"strings"
)

// defaultTexts holds every user-visible string. Keys can be overridden
// through the texts section of the config file.
var defaultTexts = map[string]string{
	// Buttons.
	"btn_slide":            "📊 Slayd buyurtma",
	"btn_ai":               "🤖 AI xizmatlar",
	"btn_topic":            "🔎 Mavzu qidirish",
	"btn_profile":          "👤 Profil",
	"btn_contact":          "☎️ Admin bilan aloqa",
	"btn_admin":            "⚙️ Admin panel",
	"btn_back":             "⬅️ Orqaga",
	"btn_cancel":           "❌ Bekor qilish",
	"btn_join":             "📢 Kanalga o'tish",
	"btn_check":            "✅ Tekshirish",
	"btn_share_phone":      "📱 Raqamni yuborish",
	"btn_i2v":              "🖼➡️🎬 Rasmdan video",
	"btn_t2i":              "✍️➡️🖼 Matndan rasm",
	"btn_video":            "🎬 Video yaratish",
	"btn_approve":          "✅ Tasdiqlash",
	"btn_decline":          "❌ Rad etish",
	"btn_contact_operator": "☎️ Admin bilan bog'lanish",
	"adm_topic_add":        "➕ Mavzu qo'shish",
	"adm_topic_del":        "➖ Mavzu o'chirish",
	"adm_topic_list":       "📋 Mavzular",
	"adm_deliver":          "📤 Buyurtmani yuborish",
	"adm_export":           "📥 Foydalanuvchilar (Excel)",
	"adm_stats":            "📈 Statistika",

	// Prompts.
	"subscribe":           "Botdan foydalanish uchun kanalimizga obuna bo'ling va \"Tekshirish\" tugmasini bosing.",
	"reg_name":            "Ismingizni kiriting:",
	"reg_age":             "Yoshingizni kiriting (faqat raqam):",
	"reg_region":          "Qaysi viloyatdansiz?",
	"reg_phone":           "Telefon raqamingizni yuboring yoki yozing (+998901234567):",
	"slide_topic":         "Slayd mavzusini yozing:",
	"slide_pages":         "Nechta sahifa bo'lsin? (faqat raqam)",
	"slide_colors":        "Qaysi ranglarda bo'lsin?",
	"slide_text_amount":   "Matn hajmi qanday bo'lsin? (kam / o'rtacha / ko'p)",
	"slide_deadline":      "Qachongacha tayyor bo'lishi kerak?",
	"slide_format":        "Qaysi formatda kerak? (pptx / pdf)",
	"payment":             "💳 Narxi: {price} so'm\n\nKarta: {card}\nEgasi: {holder}\n\nTo'lovni amalga oshirib, chek rasmini yuboring.",
	"i2v_image":           "Videoga aylantiriladigan rasmni yuboring:",
	"i2v_description":     "Video qanday bo'lishini qisqacha yozing:",
	"t2i_description":     "Qanday rasm kerakligini batafsil yozing:",
	"video_description":   "Video nima haqida bo'lsin?",
	"video_duration":      "Video davomiyligi qancha bo'lsin?",
	"topic_number":        "Mavzu raqamini kiriting:",
	"admin_topic_number":  "Yangi mavzu raqamini kiriting:",
	"admin_topic_message": "Mavzu matnini yuboring:",
	"admin_topic_delete":  "O'chiriladigan mavzu raqamini kiriting:",
	"admin_file":          "Foydalanuvchiga yuboriladigan faylni yuboring (rasm, hujjat yoki video):",
	"admin_status":        "Foydalanuvchi status raqamini kiriting:",
	"admin_comment":       "Izoh yozing:",

	// Messages.
	"banner":              "Assalomu alaykum! 👋\nSlayd va AI xizmatlari botiga xush kelibsiz.",
	"welcome_back":        "Xush kelibsiz! Status raqamingiz: {status}",
	"registered":          "✅ Ro'yxatdan o'tdingiz!\nStatus raqamingiz: {status}",
	"main_menu":           "Asosiy menyu:",
	"not_subscribed":      "Siz hali kanalga obuna bo'lmagansiz.",
	"finish_registration": "Avval ro'yxatdan o'tishni yakunlang.",
	"invalid_kind":        "⚠️ Noto'g'ri format. Iltimos, so'ralgan ma'lumotni yuboring.",
	"invalid_number":      "⚠️ Faqat raqam kiriting.",
	"invalid_phone":       "⚠️ Telefon raqami noto'g'ri.",
	"invalid_waiting":     "Iltimos, tugmalardan foydalaning.",
	"not_found_topic":     "⚠️ Bunday raqamli mavzu topilmadi.",
	"not_found_status":    "⚠️ Bunday status raqamli foydalanuvchi topilmadi.",
	"pending":             "⏳ Buyurtmangiz qabul qilindi. Admin tasdiqlashini kuting.",
	"submit_failed":       "⚠️ Buyurtmani yuborib bo'lmadi. Keyinroq qayta urinib ko'ring.",
	"approved_slide":      "✅ To'lov tasdiqlandi! Slaydingiz tayyorlanmoqda.",
	"approved_media":      "✅ To'lov tasdiqlandi! Buyurtmangiz tayyorlanmoqda.",
	"declined":            "❌ To'lov rad etildi. Savollar bo'lsa admin bilan bog'laning.",
	"no_proof":            "⚠️ To'lov cheki biriktirilmagan.",
	"slow_down":           "⏳ Juda tez! Biroz sekinroq.",
	"unknown":             "Tushunmadim. Menyudan foydalaning.",
	"error":               "⚠️ Xatolik yuz berdi. Qayta urinib ko'ring.",
	"cancelled":           "Bekor qilindi.",
	"profile":             "👤 {name}\n#️⃣ Status: {status}\n📍 {region}\n📞 {phone}",
	"contact":             "Admin bilan bog'lanish: {url}",
	"contact_missing":     "Admin kontakti hozircha mavjud emas.",
	"ai_menu":             "Kerakli AI xizmatni tanlang:",
	"admin_panel":         "⚙️ Admin panel",
	"topic_found":         "📌 {number}:\n\n{message}",
	"topic_saved":         "✅ {number} raqamli mavzu saqlandi.",
	"topic_deleted":       "🗑 {number} raqamli mavzu o'chirildi.",
	"topic_missing":       "⚠️ {number} raqamli mavzu topilmadi.",
	"topics_empty":        "Mavzular yo'q.",
	"topics_header":       "📋 Mavzular:",
	"delivered":           "✅ Fayl {status} status raqamli foydalanuvchiga yuborildi.",
	"delivery_failed":     "⚠️ Yuborib bo'lmadi: {err}",
	"stats":               "📈 Foydalanuvchilar: {users}\nMavzular: {topics}\nKeyingi status: {next}",
	"export_caption":      "Foydalanuvchilar ro'yxati",
	"decision_approve":    "Tasdiqlandi ✅",
	"decision_decline":    "Rad etildi ❌",
	"decision_conflict":   "Bu buyurtma bo'yicha boshqa qaror qabul qilingan.",
	"decision_failed":     "Xabarni tahrirlab bo'lmadi: {err}",

	// Order notification.
	"title_slide":       "🆕 Slayd buyurtma",
	"title_i2v":         "🆕 Rasmdan video",
	"title_t2i":         "🆕 Matndan rasm",
	"title_video":       "🆕 Video yaratish",
	"field_topic":       "Mavzu",
	"field_pages":       "Sahifalar",
	"field_colors":      "Ranglar",
	"field_text_amount": "Matn hajmi",
	"field_deadline":    "Muddat",
	"field_format":      "Format",
	"field_description": "Tavsif",
	"field_duration":    "Davomiylik",
	"field_image":       "Rasm",
	"field_price":       "Narx",
}

// Texts resolves text keys to strings.
type Texts map[string]string

// NewTexts returns the defaults with overrides applied. Empty overrides are ignored.
func NewTexts(overrides map[string]string) Texts {
	t := maps.Clone(defaultTexts)
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			t[k] = v
		}
	}
	return t
}

// Get returns the text for key, or the key itself when it is unknown.
func (t Texts) Get(key string) string {
	if v, ok := t[key]; ok {
		return v
	}
	return key
}

// Format returns the text for key with {name} placeholders replaced.
// vars are name, value pairs.
func (t Texts) Format(key string, vars ...string) string {
	s := t.Get(key)
	if len(vars) < 2 {
		return s
	}
	pairs := make([]string, 0, len(vars))
	for i := 0; i+1 < len(vars); i += 2 {
		pairs = append(pairs, "{"+vars[i]+"}", vars[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
