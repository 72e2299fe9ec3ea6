package jwe

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/ronniedz/jose4go/pkg/base64"
	"github.com/ronniedz/jose4go/pkg/header"
	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwk"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.Decode(s)
	require.NoError(t, err)
	return b
}

// The IETF JOSE cookbook encryption examples, using the keys and
// expected serializations of draft-ietf-jose-cookbook section 4.
//
// http://tools.ietf.org/html/draft-ietf-jose-cookbook-01#section-4

// cookbookFrodoRSAKey is the section 4.1 RSA encryption key.
func cookbookFrodoRSAKey() jwk.Value {
	return jwk.Value{
		jwk.KeyType:      jwk.KeyTypeRSA,
		jwk.KeyID:        "frodo.baggins@hobbiton.example",
		jwk.PublicKeyUse: jwk.UseEncryption,
		jwk.N: "maxhbsmBtdQ3CNrKvprUE6n9lYcregDMLYNeTAWcLj8NnPU9XIYegT" +
			"HVHQjxKDSHP2l-F5jS7sppG1wgdAqZyhnWvXhYNvcM7RfgKxqNx_xAHx" +
			"6f3yy7s-M9PSNCwPC2lh6UAkR4I00EhV9lrypM9Pi4lBUop9t5fS9W5U" +
			"NwaAllhrd-osQGPjIeI1deHTwx-ZTHu3C60Pu_LJIl6hKn9wbwaUmA4c" +
			"R5Bd2pgbaY7ASgsjCUbtYJaNIHSoHXprUdJZKUMAzV0WOKPfA6OPI4oy" +
			"pBadjvMZ4ZAj3BnXaSYsEZhaueTXvZB4eZOAjIyh2e_VOIKVMsnDrJYA" +
			"VotGlvMQ",
		jwk.E: "AQAB",
		jwk.D: "Kn9tgoHfiTVi8uPu5b9TnwyHwG5dK6RE0uFdlpCGnJN7ZEi963R7wy" +
			"bQ1PLAHmpIbNTztfrheoAniRV1NCIqXaW_qS461xiDTp4ntEPnqcKsyO" +
			"5jMAji7-CL8vhpYYowNFvIesgMoVaPRYMYT9TW63hNM0aWs7USZ_hLg6" +
			"Oe1mY0vHTI3FucjSM86Nff4oIENt43r2fspgEPGRrdE6fpLc9Oaq-qeP" +
			"1GFULimrRdndm-P8q8kvN3KHlNAtEgrQAgTTgz80S-3VD0FgWfgnb1PN" +
			"miuPUxO8OpI9KDIfu_acc6fg14nsNaJqXe6RESvhGPH2afjHqSy_Fd2v" +
			"pzj85bQQ",
		jwk.P: "2DwQmZ43FoTnQ8IkUj3BmKRf5Eh2mizZA5xEJ2MinUE3sdTYKSLtaE" +
			"oekX9vbBZuWxHdVhM6UnKCJ_2iNk8Z0ayLYHL0_G21aXf9-unynEpUsH" +
			"7HHTklLpYAzOOx1ZgVljoxAdWNn3hiEFrjZLZGS7lOH-a3QQlDDQoJOJ" +
			"2VFmU",
		jwk.Q: "te8LY4-W7IyaqH1ExujjMqkTAlTeRbv0VLQnfLY2xINnrWdwiQ93_V" +
			"F099aP1ESeLja2nw-6iKIe-qT7mtCPozKfVtUYfz5HrJ_XY2kfexJINb" +
			"9lhZHMv5p1skZpeIS-GPHCC6gRlKo1q-idn_qxyusfWv7WAxlSVfQfk8" +
			"d6Et0",
		jwk.DP: "UfYKcL_or492vVc0PzwLSplbg4L3-Z5wL48mwiswbpzOyIgd2xHTH" +
			"QmjJpFAIZ8q-zf9RmgJXkDrFs9rkdxPtAsL1WYdeCT5c125Fkdg317JV" +
			"RDo1inX7x2Kdh8ERCreW8_4zXItuTl_KiXZNU5lvMQjWbIw2eTx1lpsf" +
			"lo0rYU",
		jwk.DQ: "iEgcO-QfpepdH8FWd7mUFyrXdnOkXJBCogChY6YKuIHGc_p8Le9Mb" +
			"pFKESzEaLlN1Ehf3B6oGBl5Iz_ayUlZj2IoQZ82znoUrpa9fVYNot87A" +
			"CfzIG7q9Mv7RiPAderZi03tkVXAdaBau_9vs5rS-7HMtxkVrxSUvJY14" +
			"TkXlHE",
		jwk.QI: "kC-lzZOqoFaZCr5l0tOVtREKoVqaAYhQiqIRGL-MzS4sCmRkxm5vZ" +
			"lXYx6RtE1n_AagjqajlkjieGlxTTThHD8Iga6foGBMaAr5uR1hGQpSc7" +
			"Gl7CF1DZkBJMTQN6EshYzZfxW08mIO8M6Rzuh0beL6fG9mkDcIyPrBXx" +
			"2bQ_mM",
	}
}

// cookbookSamwiseRSAKey is the section 4.2 RSA-OAEP encryption key.
func cookbookSamwiseRSAKey() jwk.Value {
	return jwk.Value{
		jwk.KeyType:      jwk.KeyTypeRSA,
		jwk.KeyID:        "samwise.gamgee@hobbiton.example",
		jwk.PublicKeyUse: jwk.UseEncryption,
		jwk.Algorithm:    "RSA-OAEP",
		jwk.N: "wbdxI55VaanZXPY29Lg5hdmv2XhvqAhoxUkanfzf2-5zVUxa6prHRr" +
			"I4pP1AhoqJRlZfYtWWd5mmHRG2pAHIlh0ySJ9wi0BioZBl1XP2e-C-Fy" +
			"XJGcTy0HdKQWlrfhTm42EW7Vv04r4gfao6uxjLGwfpGrZLarohiWCPnk" +
			"Nrg71S2CuNZSQBIPGjXfkmIy2tl_VWgGnL22GplyXj5YlBLdxXp3XeSt" +
			"sqo571utNfoUTU8E4qdzJ3U1DItoVkPGsMwlmmnJiwA7sXRItBCivR4M" +
			"5qnZtdw-7v4WuR4779ubDuJ5nalMv2S66-RPcnFAzWSKxtBDnFJJDGIU" +
			"e7Tzizjg1nms0Xq_yPub_UOlWn0ec85FCft1hACpWG8schrOBeNqHBOD" +
			"FskYpUc2LC5JA2TaPF2dA67dg1TTsC_FupfQ2kNGcE1LgprxKHcVWYQb" +
			"86B-HozjHZcqtauBzFNV5tbTuB-TpkcvJfNcFLlH3b8mb-H_ox35FjqB" +
			"SAjLKyoeqfKTpVjvXhd09knwgJf6VKq6UC418_TOljMVfFTWXUxlnfhO" +
			"OnzW6HSSzD1c9WrCuVzsUMv54szidQ9wf1cYWf3g5qFDxDQKis99gcDa" +
			"iCAwM3yEBIzuNeeCa5dartHDb1xEB_HcHSeYbghbMjGfasvKn0aZRsnT" +
			"yC0xhWBlsolZE",
		jwk.E: "AQAB",
		jwk.D: "n7fzJc3_WG59VEOBTkayzuSMM780OJQuZjN_KbH8lOZG25ZoA7T4Bx" +
			"cc0xQn5oZE5uSCIwg91oCt0JvxPcpmqzaJZg1nirjcWZ-oBtVk7gCAWq" +
			"-B3qhfF3izlbkosrzjHajIcY33HBhsy4_WerrXg4MDNE4HYojy68TcxT" +
			"2LYQRxUOCf5TtJXvM8olexlSGtVnQnDRutxEUCwiewfmmrfveEogLx9E" +
			"A-KMgAjTiISXxqIXQhWUQX1G7v_mV_Hr2YuImYcNcHkRvp9E7ook0876" +
			"DhkO8v4UOZLwA1OlUX98mkoqwc58A_Y2lBYbVx1_s5lpPsEqbbH-nqIj" +
			"h1fL0gdNfihLxnclWtW7pCztLnImZAyeCWAG7ZIfv-Rn9fLIv9jZ6r7r" +
			"-MSH9sqbuziHN2grGjD_jfRluMHa0l84fFKl6bcqN1JWxPVhzNZo01yD" +
			"F-1LiQnqUYSepPf6X3a2SOdkqBRiquE6EvLuSYIDpJq3jDIsgoL8Mo1L" +
			"oomgiJxUwL_GWEOGu28gplyzm-9Q0U0nyhEf1uhSR8aJAQWAiFImWH5W" +
			"_IQT9I7-yrindr_2fWQ_i1UgMsGzA7aOGzZfPljRy6z-tY_KuBG00-28" +
			"S_aWvjyUc-Alp8AUyKjBZ-7CWH32fGWK48j1t-zomrwjL_mnhsPbGs0c" +
			"9WsWgRzI-K8gE",
		jwk.P: "7_2v3OQZzlPFcHyYfLABQ3XP85Es4hCdwCkbDeltaUXgVy9l9etKgh" +
			"vM4hRkOvbb01kYVuLFmxIkCDtpi-zLCYAdXKrAK3PtSbtzld_XZ9nlsY" +
			"a_QZWpXB_IrtFjVfdKUdMz94pHUhFGFj7nr6NNxfpiHSHWFE1zD_AC3m" +
			"Y46J961Y2LRnreVwAGNw53p07Db8yD_92pDa97vqcZOdgtybH9q6uma-" +
			"RFNhO1AoiJhYZj69hjmMRXx-x56HO9cnXNbmzNSCFCKnQmn4GQLmRj9s" +
			"fbZRqL94bbtE4_e0Zrpo8RNo8vxRLqQNwIy85fc6BRgBJomt8QdQvIgP" +
			"gWCv5HoQ",
		jwk.Q: "zqOHk1P6WN_rHuM7ZF1cXH0x6RuOHq67WuHiSknqQeefGBA9PWs6Zy" +
			"KQCO-O6mKXtcgE8_Q_hA2kMRcKOcvHil1hqMCNSXlflM7WPRPZu2qCDc" +
			"qssd_uMbP-DqYthH_EzwL9KnYoH7JQFxxmcv5An8oXUtTwk4knKjkIYG" +
			"RuUwfQTus0w1NfjFAyxOOiAQ37ussIcE6C6ZSsM3n41UlbJ7TCqewzVJ" +
			"aPJN5cxjySPZPD3Vp01a9YgAD6a3IIaKJdIxJS1ImnfPevSJQBE79-EX" +
			"e2kSwVgOzvt-gsmM29QQ8veHy4uAqca5dZzMs7hkkHtw1z0jHV90epQJ" +
			"JlXXnH8Q",
		jwk.DP: "19oDkBh1AXelMIxQFm2zZTqUhAzCIr4xNIGEPNoDt1jK83_FJA-xn" +
			"x5kA7-1erdHdms_Ef67HsONNv5A60JaR7w8LHnDiBGnjdaUmmuO8XAxQ" +
			"J_ia5mxjxNjS6E2yD44USo2JmHvzeeNczq25elqbTPLhUpGo1IZuG72F" +
			"ZQ5gTjXoTXC2-xtCDEUZfaUNh4IeAipfLugbpe0JAFlFfrTDAMUFpC3i" +
			"XjxqzbEanflwPvj6V9iDSgjj8SozSM0dLtxvu0LIeIQAeEgT_yXcrKGm" +
			"pKdSO08kLBx8VUjkbv_3Pn20Gyu2YEuwpFlM_H1NikuxJNKFGmnAq9Lc" +
			"nwwT0jvoQ",
		jwk.DQ: "S6p59KrlmzGzaQYQM3o0XfHCGvfqHLYjCO557HYQf72O9kLMCfd_1" +
			"VBEqeD-1jjwELKDjck8kOBl5UvohK1oDfSP1DleAy-cnmL29DqWmhgwM" +
			"1ip0CCNmkmsmDSlqkUXDi6sAaZuntyukyflI-qSQ3C_BafPyFaKrt1fg" +
			"dyEwYa08pESKwwWisy7KnmoUvaJ3SaHmohFS78TJ25cfc10wZ9hQNOrI" +
			"ChZlkiOdFCtxDqdmCqNacnhgE3bZQjGp3n83ODSz9zwJcSUvODlXBPc2" +
			"AycH6Ci5yjbxt4Ppox_5pjm6xnQkiPgj01GpsUssMmBN7iHVsrE7N2iz" +
			"nBNCeOUIQ",
		jwk.QI: "FZhClBMywVVjnuUud-05qd5CYU0dK79akAgy9oX6RX6I3IIIPckCc" +
			"iRrokxglZn-omAY5CnCe4KdrnjFOT5YUZE7G_Pg44XgCXaarLQf4hl80" +
			"oPEf6-jJ5Iy6wPRx7G2e8qLxnh9cOdf-kRqgOS3F48Ucvw3ma5V6KGMw" +
			"QqWFeV31XtZ8l5cVI-I3NzBS7qltpUVgz2Ju021eyc7IlqgzR98qKONl" +
			"27DuEES0aK0WE97jnsyO27Yp88Wa2RiBrEocM89QZI1seJiGDizHRUP4" +
			"UZxw9zsXww46wy0P6f9grnYp7t8LkyDDk8eoI4KX6SNMNVcyVS9IWjlq" +
			"8EzqZEKIA",
	}
}

// cookbookPeregrinECKey is the section 4.4 P-384 encryption key.
func cookbookPeregrinECKey() jwk.Value {
	return jwk.Value{
		jwk.KeyType:      jwk.KeyTypeEC,
		jwk.KeyID:        "peregrin.took@tuckborough.example",
		jwk.PublicKeyUse: jwk.UseEncryption,
		jwk.Curve:        jwk.CurveP384,
		jwk.X:            "YU4rRUzdmVqmRtWOs2OpDE_T5fsNIodcG8G5FWPrTPMyxpzsSOGaQLpe2FpxBmu2",
		jwk.Y:            "A8-yxCHxkfBz3hKZfI1jUYMjUhsEveZ9THuwFjH2sCNdtksRJU7D5-SkgaFL1ETP",
		jwk.D:            "iTx2pk7wW-GqJkHcEkFQb2EFyYcO7RugmaW3mRrQVAOUiPommT0IdnYK2xDlZh-j",
	}
}

// TestCookbookRSA15AndAESCBCHMAC covers cookbook section 4.1:
// decrypting the RSA1_5 + A128CBC-HS256 example, then reproducing the
// header, IV, ciphertext, and tag verbatim from its inputs. The
// encrypted key differs because RSA1_5 is randomized.
func TestCookbookRSA15AndAESCBCHMAC(t *testing.T) {
	jweCompactSerialization :=
		"eyJhbGciOiJSU0ExXzUiLCJraWQiOiJmcm9kby5iYWdnaW5zQGhvYmJpdG9uLm" +
			"V4YW1wbGUiLCJlbmMiOiJBMTI4Q0JDLUhTMjU2In0" +
			"." +
			"laLxI0j-nLH-_BgLOXMozKxmy9gffy2gTdvqzfTihJBuuzxg0V7yk1WClnQePF" +
			"vG2K-pvSlWc9BRIazDrn50RcRai__3TDON395H3c62tIouJJ4XaRvYHFjZTZ2G" +
			"Xfz8YAImcc91Tfk0WXC2F5Xbb71ClQ1DDH151tlpH77f2ff7xiSxh9oSewYrcG" +
			"TSLUeeCt36r1Kt3OSj7EyBQXoZlN7IxbyhMAfgIe7Mv1rOTOI5I8NQqeXXW8Vl" +
			"zNmoxaGMny3YnGir5Wf6Qt2nBq4qDaPdnaAuuGUGEecelIO1wx1BpyIfgvfjOh" +
			"MBs9M8XL223Fg47xlGsMXdfuY-4jaqVw" +
			"." +
			"bbd5sTkYwhAIqfHsx8DayA" +
			"." +
			"0fys_TY_na7f8dwSfXLiYdHaA2DxUjD67ieF7fcVbIR62JhJvGZ4_FNVSiGc_r" +
			"aa0HnLQ6s1P2sv3Xzl1p1l_o5wR_RsSzrS8Z-wnI3Jvo0mkpEEnlDmZvDu_k8O" +
			"WzJv7eZVEqiWKdyVzFhPpiyQU28GLOpRc2VbVbK4dQKPdNTjPPEmRqcaGeTWZV" +
			"yeSUvf5k59yJZxRuSvWFf6KrNtmRdZ8R4mDOjHSrM_s8uwIFcqt4r5GX8TKaI0" +
			"zT5CbL5Qlw3sRc7u_hg0yKVOiRytEAEs3vZkcfLkP6nbXdC_PkMdNS-ohP78T2" +
			"O6_7uInMGhFeX4ctHG7VelHGiT93JfWDEQi5_V9UN1rhXNrYu-0fVMkZAKX3VW" +
			"i7lzA6BP430m" +
			"." +
			"kvKuFBXHe5mQr4lqgobAUg"

	key := cookbookFrodoRSAKey()

	// verify that we can decrypt it
	parsed, err := Parse(jweCompactSerialization)
	require.NoError(t, err)

	plaintext, err := parsed.Decrypt(key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(plaintext), "You can trust us"))
	require.True(t, strings.HasSuffix(string(plaintext), "We are your friends, Frodo."))

	// verify that we can reproduce it (most of it) from the inputs
	params := header.New()
	params.Set(header.Algorithm, jwa.RSA1_5)
	params.Set(header.KeyID, "frodo.baggins@hobbiton.example")
	params.Set(header.Encryption, jwa.A128CBCHS256)

	reproduced, err := Encrypt(params, plaintext, jwk.PublicValue(key),
		WithInitializationVector(mustDecode(t, "bbd5sTkYwhAIqfHsx8DayA")),
		WithContentEncryptionKey(mustDecode(t, "3qyTVhIWt5juqZUCpfRqpvauwB956MEJL2Rt-8qXKSo")),
	)
	require.NoError(t, err)

	exampleParts := strings.Split(jweCompactSerialization, ".")
	reproducedParts := strings.Split(reproduced.String(), ".")

	require.Equal(t, exampleParts[0], reproducedParts[0])
	// RSA v1.5 is nondeterministic so the encrypted key differs each
	// time and can't be compared to the example
	require.Equal(t, exampleParts[2], reproducedParts[2])
	require.Equal(t, exampleParts[3], reproducedParts[3])
	require.Equal(t, exampleParts[4], reproducedParts[4])

	// and the reproduction decrypts with the private key
	recovered, err := reproduced.Decrypt(key)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

// TestCookbookRSAOAEPAndAESGCM covers cookbook section 4.2: the CEK
// recovery of the key management step in isolation, and the full
// RSA-OAEP + A256GCM decryption.
func TestCookbookRSAOAEPAndAESGCM(t *testing.T) {
	jweCompactSerialization :=
		"eyJhbGciOiJSU0EtT0FFUCIsImtpZCI6InNhbXdpc2UuZ2FtZ2VlQGhvYmJpdG" +
			"9uLmV4YW1wbGUiLCJlbmMiOiJBMjU2R0NNIn0" +
			"." +
			"rT99rwrBTbTI7IJM8fU3Eli7226HEB7IchCxNuh7lCiud48LxeolRdtFF4nzQi" +
			"beYOl5S_PJsAXZwSXtDePz9hk-BbtsTBqC2UsPOdwjC9NhNupNNu9uHIVftDyu" +
			"cvI6hvALeZ6OGnhNV4v1zx2k7O1D89mAzfw-_kT3tkuorpDU-CpBENfIHX1Q58" +
			"-Aad3FzMuo3Fn9buEP2yXakLXYa15BUXQsupM4A1GD4_H4Bd7V3u9h8Gkg8Bpx" +
			"KdUV9ScfJQTcYm6eJEBz3aSwIaK4T3-dwWpuBOhROQXBosJzS1asnuHtVMt2pK" +
			"IIfux5BC6huIvmY7kzV7W7aIUrpYm_3H4zYvyMeq5pGqFmW2k8zpO878TRlZx7" +
			"pZfPYDSXZyS0CfKKkMozT_qiCwZTSz4duYnt8hS4Z9sGthXn9uDqd6wycMagnQ" +
			"fOTs_lycTWmY-aqWVDKhjYNRf03NiwRtb5BE-tOdFwCASQj3uuAgPGrO2AWBe3" +
			"8UjQb0lvXn1SpyvYZ3WFc7WOJYaTa7A8DRn6MC6T-xDmMuxC0G7S2rscw5lQQU" +
			"06MvZTlFOt0UvfuKBa03cxA_nIBIhLMjY2kOTxQMmpDPTr6Cbo8aKaOnx6ASE5" +
			"Jx9paBpnNmOOKH35j_QlrQhDWUN6A2Gg8iFayJ69xDEdHAVCGRzN3woEI2ozDR" +
			"s" +
			"." +
			"-nBoKLH0YkLZPSI9" +
			"." +
			"o4k2cnGN8rSSw3IDo1YuySkqeS_t2m1GXklSgqBdpACm6UJuJowOHC5ytjqYgR" +
			"L-I-soPlwqMUf4UgRWWeaOGNw6vGW-xyM01lTYxrXfVzIIaRdhYtEMRBvBWbEw" +
			"P7ua1DRfvaOjgZv6Ifa3brcAM64d8p5lhhNcizPersuhw5f-pGYzseva-TUaL8" +
			"iWnctc-sSwy7SQmRkfhDjwbz0fz6kFovEgj64X1I5s7E6GLp5fnbYGLa1QUiML" +
			"7Cc2GxgvI7zqWo0YIEc7aCflLG1-8BboVWFdZKLK9vNoycrYHumwzKluLWEbSV" +
			"maPpOslY2n525DxDfWaVFUfKQxMF56vn4B9QMpWAbnypNimbM8zVOw" +
			"." +
			"UCGiqJxhBI3IFVdPalHHvA"

	key := cookbookSamwiseRSAKey()

	parsed, err := Parse(jweCompactSerialization)
	require.NoError(t, err)

	// the key management step is independently callable
	cek, err := parsed.RecoverCEK(key)
	require.NoError(t, err)
	require.Equal(t, mustDecode(t, "mYMfsggkTAm0TbvtlFh2hyoXnbEzJQjMxmgLN3d8xXA"), cek)

	// and the whole thing decrypts
	plaintext, err := parsed.Decrypt(key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(plaintext), "You can trust us"))
	require.True(t, strings.HasSuffix(string(plaintext), "We are your friends, Frodo."))
}

// TestCookbookPBES2AndAESCBCHMAC covers cookbook section 4.3:
// decrypting the PBES2-HS256+A128KW + A128CBC-HS256 example, and
// reproducing its compact serialization byte-for-byte from the inputs.
func TestCookbookPBES2AndAESCBCHMAC(t *testing.T) {
	password := "entrap_o_peter_long_credit_tun"

	exampleCompactSerialization :=
		"eyJhbGciOiJQQkVTMi1IUzI1NitBMTI4S1ciLCJwMnMiOiI4UTFTemluYXNSM3" +
			"hjaFl6NlpaY0hBIiwicDJjIjo4MTkyLCJjdHkiOiJqd2stc2V0K2pzb24iLCJl" +
			"bmMiOiJBMTI4Q0JDLUhTMjU2In0" +
			"." +
			"YKbKLsEoyw_JoNvhtuHo9aaeRNSEhhAW2OVHcuF_HLqS0n6hA_fgCA" +
			"." +
			"VBiCzVHNoLiR3F4V82uoTQ" +
			"." +
			"23i-Tb1AV4n0WKVSSgcQrdg6GRqsUKxjruHXYsTHAJLZ2nsnGIX86vMXqIi6IR" +
			"sfywCRFzLxEcZBRnTvG3nhzPk0GDD7FMyXhUHpDjEYCNA_XOmzg8yZR9oyjo6l" +
			"TF6si4q9FZ2EhzgFQCLO_6h5EVg3vR75_hkBsnuoqoM3dwejXBtIodN84PeqMb" +
			"6asmas_dpSsz7H10fC5ni9xIz424givB1YLldF6exVmL93R3fOoOJbmk2GBQZL" +
			"_SEGllv2cQsBgeprARsaQ7Bq99tT80coH8ItBjgV08AtzXFFsx9qKvC982KLKd" +
			"PQMTlVJKkqtV4Ru5LEVpBZXBnZrtViSOgyg6AiuwaS-rCrcD_ePOGSuxvgtrok" +
			"AKYPqmXUeRdjFJwafkYEkiuDCV9vWGAi1DH2xTafhJwcmywIyzi4BqRpmdn_N-" +
			"zl5tuJYyuvKhjKv6ihbsV_k1hJGPGAxJ6wUpmwC4PTQ2izEm0TuSE8oMKdTw8V" +
			"3kobXZ77ulMwDs4p" +
			"." +
			"ALTKwxvAefeL-32NY7eTAQ"

	plaintext := `{"keys":[` +
		`{"kty":"oct","kid":"77c7e2b8-6e13-45cf-8672-617b5b45243a","use":"enc","alg":"A128GCM","k":"XctOhJAkA-pD9Lh7ZgW_2A"},` +
		`{"kty":"oct","kid":"81b20965-8332-43d9-a468-82160ad91ac8","use":"enc","alg":"A128KW","k":"GZy6sIZ6wl9NJOKB-jnmVQ"},` +
		`{"kty":"oct","kid":"18ec08e1-bfa9-4d95-b205-2b4dd1d4321d","use":"enc","alg":"A256GCMKW","k":"qC57l_uxcm7Nm3K-ct4GFjx8tM1U8CZ0NLBvdQstiS8"}]}`

	// verify that we can decrypt it
	parsed, err := Parse(exampleCompactSerialization)
	require.NoError(t, err)

	decrypted, err := parsed.Decrypt(password)
	require.NoError(t, err)
	require.Equal(t, plaintext, string(decrypted))

	// verify that we can reproduce it from the inputs
	params := header.New()
	params.Set(header.Algorithm, jwa.PBES2HS256A128KW)
	params.Set(header.PBES2SaltInput, "8Q1SzinasR3xchYz6ZZcHA")
	params.Set(header.PBES2IterationCount, int64(8192))
	params.Set(header.ContentType, "jwk-set+json")
	params.Set(header.Encryption, jwa.A128CBCHS256)

	reproduced, err := Encrypt(params, []byte(plaintext), password,
		WithContentEncryptionKey(mustDecode(t, "uwsjJXaBK407Qaf0_zpcpmr1Cs0CC50hIUEyGNEt3m0")),
		WithInitializationVector(mustDecode(t, "VBiCzVHNoLiR3F4V82uoTQ")),
	)
	require.NoError(t, err)
	require.Equal(t, exampleCompactSerialization, reproduced.String())
}

// TestCookbookECDHESAndAESGCM covers cookbook section 4.4: the CEK
// recovery of the ECDH-ES+A128KW key agreement in isolation, and the
// full decryption with A128GCM.
func TestCookbookECDHESAndAESGCM(t *testing.T) {
	jweCompactSerialization :=
		"eyJhbGciOiJFQ0RILUVTK0ExMjhLVyIsImtpZCI6InBlcmVncmluLnRvb2tAdH" +
			"Vja2Jvcm91Z2guZXhhbXBsZSIsImVwayI6eyJrdHkiOiJFQyIsImNydiI6IlAt" +
			"Mzg0IiwieCI6ImxCQXRwV3FFWGVxbndTLTctWmVVaG94U3FaMnZVWnVkdVdlRU" +
			"J4OE5FVmFiZ1hWMXBSZjZnaUdsc0Z6M21uWGIiLCJ5Ijoic0FrN2VnZjZCT21z" +
			"TWxaWVBYZ1VzYmh4c3pEajJRN3NjWjljTEFXaFpMWFEwMXFYMC12eF91T0Z0Q0" +
			"hQb3BFOCJ9LCJlbmMiOiJBMTI4R0NNIn0" +
			"." +
			"hRoQEtCm89pJyxPi-ZppMUheKsVcnw_u" +
			"." +
			"CDLFinFbjSpqzCwi" +
			"." +
			"XLL2opd306uEqwYV4zouZYbw1_tbaXlN6w3e3K6lVOTNez9eAVf6NEGdgWOvjx" +
			"Jh4Bh3x9eBYPvEI-8YJbXFSJi2K7NX6ThUTalCPfP8ehQ8aCvGMUTLovJqTIjg" +
			"FmbinxFzz3gYZpm8UfdM2NG_iITafJRUHbp7pwCTOAUyep7c6uSMcTen_lSwYs" +
			"xxlhMKU8mi3QG5yaZIh5TvK4ltXbd-FGg9EWDT8qE7wsnJfxByd-fyBAtyGP2o" +
			"EAVXJ2yaYvyfXTm_5NoRJh84frylPzotosGSTkpRppb82IkDHoe6cvwIdeaVGG" +
			"uy2yOtUBdbidIYHTjSFufN88SUIRRZftrE5WgzfplIRdoZlQb0youS" +
			"." +
			"OPP648_B5pMGPo_VxSvlCg"

	key := cookbookPeregrinECKey()

	parsed, err := Parse(jweCompactSerialization)
	require.NoError(t, err)

	// the key management step is independently callable
	cek, err := parsed.RecoverCEK(key)
	require.NoError(t, err)
	require.Equal(t, mustDecode(t, "_Tm_fqSViyOGQVK-aPJTIQ"), cek)

	// and the whole thing decrypts
	plaintext, err := parsed.Decrypt(key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(plaintext), "You can trust us"))
	require.True(t, strings.HasSuffix(string(plaintext), "We are your friends, Frodo."))
}

func TestJWEParsing(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrMalformedCompact)
	})

	t.Run("wrong part count", func(t *testing.T) {
		_, err := Parse("a.b.c")
		require.Error(t, err)
		require.Contains(t, err.Error(), "expected 4 dots, got 2")
	})

	t.Run("invalid base64 part", func(t *testing.T) {
		_, err := Parse("eyJhbGciOiJkaXIiLCJlbmMiOiJBMTI4R0NNIn0..!!!.Y2lwaGVydGV4dA.dGFn")
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrMalformedCompact)
	})
}

func TestJWERoundTrips(t *testing.T) {
	plaintext := []byte("You can trust us to stick with you through thick and thin.")

	sharedKey32 := make([]byte, 32)
	_, err := rand.Read(sharedKey32)
	require.NoError(t, err)

	sharedKey16 := make([]byte, 16)
	_, err = rand.Read(sharedKey16)
	require.NoError(t, err)

	tests := []struct {
		name       string
		alg        jwa.Algorithm
		enc        jwa.Algorithm
		encryptKey any
		decryptKey any
	}{
		{
			name:       "dir with A256GCM",
			alg:        jwa.Direct,
			enc:        jwa.A256GCM,
			encryptKey: sharedKey32,
			decryptKey: sharedKey32,
		},
		{
			name:       "A128KW with A128CBC-HS256",
			alg:        jwa.A128KW,
			enc:        jwa.A128CBCHS256,
			encryptKey: sharedKey16,
			decryptKey: sharedKey16,
		},
		{
			name:       "A256GCMKW with A128GCM",
			alg:        jwa.A256GCMKW,
			enc:        jwa.A128GCM,
			encryptKey: sharedKey32,
			decryptKey: sharedKey32,
		},
		{
			name:       "PBES2-HS256+A128KW with A128CBC-HS256",
			alg:        jwa.PBES2HS256A128KW,
			enc:        jwa.A128CBCHS256,
			encryptKey: "entrap_o_peter_long_credit_tun",
			decryptKey: "entrap_o_peter_long_credit_tun",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := header.New()
			params.Set(header.Algorithm, test.alg)
			params.Set(header.Encryption, test.enc)

			encrypted, err := Encrypt(params, plaintext, test.encryptKey)
			require.NoError(t, err)

			compact, err := encrypted.Compact()
			require.NoError(t, err)

			// Exactly four dots.
			require.Equal(t, 4, strings.Count(compact, "."))

			parsed, err := Parse(compact)
			require.NoError(t, err)

			decrypted, err := parsed.Decrypt(test.decryptKey)
			require.NoError(t, err)
			require.Equal(t, plaintext, decrypted)

			// Two successive encryptions differ (fresh IV, and fresh
			// CEK for all but direct modes) yet each still decrypts.
			params2 := header.New()
			params2.Set(header.Algorithm, test.alg)
			params2.Set(header.Encryption, test.enc)

			again, err := Encrypt(params2, plaintext, test.encryptKey)
			require.NoError(t, err)
			require.NotEqual(t, compact, again.String())

			decrypted, err = again.Decrypt(test.decryptKey)
			require.NoError(t, err)
			require.Equal(t, plaintext, decrypted)
		})
	}
}

func TestJWETampering(t *testing.T) {
	sharedKey := make([]byte, 32)
	_, err := rand.Read(sharedKey)
	require.NoError(t, err)

	params := header.New()
	params.Set(header.Algorithm, jwa.Direct)
	params.Set(header.Encryption, jwa.A128CBCHS256)

	encrypted, err := Encrypt(params, []byte("secret plaintext"), sharedKey)
	require.NoError(t, err)

	compact, err := encrypted.Compact()
	require.NoError(t, err)

	parts := strings.Split(compact, ".")
	require.Len(t, parts, 5)

	// Flipping one octet of the protected header, IV, ciphertext, or
	// tag breaks decryption with the same error kind.
	for _, idx := range []int{0, 2, 3, 4} {
		tampered := make([]string, len(parts))
		copy(tampered, parts)

		raw := []byte(tampered[idx])
		if raw[0] == 'A' {
			raw[0] = 'B'
		} else {
			raw[0] = 'A'
		}
		tampered[idx] = string(raw)

		parsed, err := Parse(strings.Join(tampered, "."))
		if err != nil {
			// Header corruption may already fail JSON parsing.
			continue
		}

		_, err = parsed.Decrypt(sharedKey)
		require.Error(t, err, "tampered part %d must not decrypt", idx)
		require.ErrorIs(t, err, joseerrors.ErrDecryptionFailure)
	}
}

func TestJWECompression(t *testing.T) {
	sharedKey := make([]byte, 32)
	_, err := rand.Read(sharedKey)
	require.NoError(t, err)

	plaintext := []byte(strings.Repeat("a very repetitive plaintext. ", 64))

	params := header.New()
	params.Set(header.Algorithm, jwa.Direct)
	params.Set(header.Encryption, jwa.A256GCM)
	params.Set(header.Zip, CompressionDeflate)

	encrypted, err := Encrypt(params, plaintext, sharedKey)
	require.NoError(t, err)
	require.Less(t, len(encrypted.Ciphertext), len(plaintext))

	parsed, err := Parse(encrypted.String())
	require.NoError(t, err)

	decrypted, err := parsed.Decrypt(sharedKey)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)

	t.Run("unknown compression", func(t *testing.T) {
		params := header.New()
		params.Set(header.Algorithm, jwa.Direct)
		params.Set(header.Encryption, jwa.A256GCM)
		params.Set(header.Zip, "GZIP")

		_, err := Encrypt(params, plaintext, sharedKey)
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrUnsupportedCompression)
	})
}

func TestJWEPolicy(t *testing.T) {
	t.Run("PBES2 iteration count above maximum", func(t *testing.T) {
		params := header.New()
		params.Set(header.Algorithm, jwa.PBES2HS256A128KW)
		params.Set(header.Encryption, jwa.A128CBCHS256)
		params.Set(header.PBES2SaltInput, "8Q1SzinasR3xchYz6ZZcHA")
		params.Set(header.PBES2IterationCount, int64(10_000))

		encrypted, err := Encrypt(params, []byte("plaintext"), "password")
		require.NoError(t, err)

		parsed, err := Parse(encrypted.String())
		require.NoError(t, err)

		_, err = parsed.Decrypt("password", WithMaxPBES2IterationCount(8192))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrPolicyViolation)

		// the default maximum accommodates it
		decrypted, err := parsed.Decrypt("password")
		require.NoError(t, err)
		require.Equal(t, []byte("plaintext"), decrypted)
	})

	t.Run("algorithm constraints", func(t *testing.T) {
		sharedKey := make([]byte, 32)
		_, err := rand.Read(sharedKey)
		require.NoError(t, err)

		params := header.New()
		params.Set(header.Algorithm, jwa.Direct)
		params.Set(header.Encryption, jwa.A256GCM)

		encrypted, err := Encrypt(params, []byte("plaintext"), sharedKey)
		require.NoError(t, err)

		parsed, err := Parse(encrypted.String())
		require.NoError(t, err)

		_, err = parsed.Decrypt(sharedKey, WithDisallowedAlgorithms(jwa.Direct))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrAlgorithmConstraintViolation)

		_, err = parsed.Decrypt(sharedKey, WithAllowedAlgorithms(jwa.RSAOAEP, jwa.A256GCM))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrAlgorithmConstraintViolation)

		_, err = parsed.Decrypt(sharedKey, WithAllowedAlgorithms(jwa.Direct, jwa.A256GCM))
		require.NoError(t, err)
	})

	t.Run("unknown critical parameter", func(t *testing.T) {
		sharedKey := make([]byte, 32)
		_, err := rand.Read(sharedKey)
		require.NoError(t, err)

		params := header.New()
		params.Set(header.Algorithm, jwa.Direct)
		params.Set(header.Encryption, jwa.A256GCM)
		params.Set(header.Critical, []string{"exp"})
		params.Set("exp", int64(1363284000))

		encrypted, err := Encrypt(params, []byte("plaintext"), sharedKey)
		require.NoError(t, err)

		parsed, err := Parse(encrypted.String())
		require.NoError(t, err)

		_, err = parsed.Decrypt(sharedKey)
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrUnsupportedCriticalParameter)

		decrypted, err := parsed.Decrypt(sharedKey, WithKnownCriticalHeaders("exp"))
		require.NoError(t, err)
		require.Equal(t, []byte("plaintext"), decrypted)
	})
}

func TestJWEKeyResolver(t *testing.T) {
	set := &jwk.Set{
		Keys: []jwk.Value{
			{
				jwk.KeyType:      jwk.KeyTypeOct,
				jwk.KeyID:        "shared-1",
				jwk.PublicKeyUse: jwk.UseEncryption,
				jwk.K:            base64.Encode([]byte("an example 256 bit shared key!!!")),
			},
		},
	}

	params := header.New()
	params.Set(header.Algorithm, jwa.Direct)
	params.Set(header.KeyID, "shared-1")
	params.Set(header.Encryption, jwa.A256GCM)

	sharedKey, err := jwk.SymmetricKeyBytes(set.Keys[0])
	require.NoError(t, err)

	encrypted, err := Encrypt(params, []byte("plaintext"), sharedKey)
	require.NoError(t, err)

	parsed, err := Parse(encrypted.String())
	require.NoError(t, err)

	resolver := func(params *header.Parameters) (any, error) {
		kid, err := params.KeyID()
		if err != nil {
			return nil, err
		}
		return set.Find(kid, jwk.UseEncryption, "", "")
	}

	decrypted, err := parsed.Decrypt(nil, WithKeyResolver(resolver))
	require.NoError(t, err)
	require.Equal(t, []byte("plaintext"), decrypted)

	t.Run("resolution failure", func(t *testing.T) {
		_, err := parsed.Decrypt(nil, WithKeyResolver(func(params *header.Parameters) (any, error) {
			return nil, joseerrors.ErrKeyResolutionFailure
		}))
		require.Error(t, err)
		require.ErrorIs(t, err, joseerrors.ErrKeyResolutionFailure)
	})
}

// TestECDHESDirectRoundTrip exercises ECDH-ES direct key agreement
// end-to-end, with the cookbook P-384 key as recipient and a freshly
// generated ephemeral key on every encryption. The disputed cookbook
// 4.5 vector is deliberately not used; the current IETF cookbook
// carries no direct-mode compact example with a consistent key.
func TestECDHESDirectRoundTrip(t *testing.T) {
	key := cookbookPeregrinECKey()

	params := header.New()
	params.Set(header.Algorithm, jwa.ECDHES)
	params.Set(header.KeyID, "peregrin.took@tuckborough.example")
	params.Set(header.Encryption, jwa.A128CBCHS256)

	plaintext := []byte("You can trust us to stick with you through thick and thin.")

	encrypted, err := Encrypt(params, plaintext, jwk.PublicValue(key))
	require.NoError(t, err)

	// direct key agreement has an empty encrypted key part
	require.Empty(t, encrypted.EncryptedKey)

	parsed, err := Parse(encrypted.String())
	require.NoError(t, err)

	decrypted, err := parsed.Decrypt(key)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}
